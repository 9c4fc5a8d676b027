package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-querybot/server/internal/agent/model"
	errx "github.com/Chative-querybot/server/internal/core/error"
	"github.com/Chative-querybot/server/internal/metrics"
	logx "github.com/Chative-querybot/server/pkg/logger"
)

// ChatModelOracle adapts an eino chat model to Oracle. Each prompt is sent as a single
// user message under the configured timeout.
type ChatModelOracle struct {
	model     einomodel.BaseChatModel
	modelName string
	timeout   time.Duration
	defaults  Options
}

func NewChatModelOracle(m einomodel.BaseChatModel, modelName string, timeout time.Duration, defaults ...Option) *ChatModelOracle {
	return &ChatModelOracle{
		model:     m,
		modelName: modelName,
		timeout:   timeout,
		defaults:  ApplyOptions(Options{}, defaults...),
	}
}

func (c *ChatModelOracle) ModelName() string { return c.modelName }

func (c *ChatModelOracle) Complete(ctx context.Context, prompt string, opts ...Option) (string, error) {
	o := ApplyOptions(c.defaults, opts...)
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	out, err := c.model.Generate(ctx, c.messages(prompt), c.modelOptions(o)...)
	if err != nil {
		err = c.classify(ctx, err)
		metrics.ObserveOracleCall(string(o.Purpose), "error", time.Since(start))
		logx.Warn().Err(err).Str("purpose", string(o.Purpose)).Str("model", c.modelName).Msg("Oracle call failed")
		return "", errx.Oracle(err, "oracle completion failed")
	}

	c.logUsage(o.Purpose, out)
	content := ""
	if out != nil {
		content = strings.TrimSpace(out.Content)
	}
	if content == "" {
		metrics.ObserveOracleCall(string(o.Purpose), "empty", time.Since(start))
		return "", errx.Oracle(ErrEmptyCompletion, "oracle completion failed")
	}
	metrics.ObserveOracleCall(string(o.Purpose), "ok", time.Since(start))
	return content, nil
}

func (c *ChatModelOracle) Stream(ctx context.Context, prompt string, opts ...Option) iter.Seq2[string, error] {
	o := ApplyOptions(c.defaults, opts...)
	return func(yield func(string, error) bool) {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()

		start := time.Now()
		fail := func(err error) {
			err = c.classify(ctx, err)
			metrics.ObserveOracleCall(string(o.Purpose), "error", time.Since(start))
			logx.Warn().Err(err).Str("purpose", string(o.Purpose)).Str("model", c.modelName).Msg("Oracle stream failed")
			yield("", errx.Oracle(err, "oracle stream failed"))
		}

		sr, err := c.model.Stream(ctx, c.messages(prompt), c.modelOptions(o)...)
		if err != nil {
			fail(err)
			return
		}
		defer sr.Close()

		var (
			last    *schema.Message
			emitted bool
		)
		for {
			msg, err := sr.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				fail(err)
				return
			}
			if msg == nil {
				continue
			}
			if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
				last = msg
			}
			if msg.Content == "" {
				continue
			}
			emitted = true
			if !yield(msg.Content, nil) {
				metrics.ObserveOracleCall(string(o.Purpose), "ok", time.Since(start))
				return
			}
		}

		c.logUsage(o.Purpose, last)
		if !emitted {
			metrics.ObserveOracleCall(string(o.Purpose), "empty", time.Since(start))
			yield("", errx.Oracle(ErrEmptyCompletion, "oracle stream failed"))
			return
		}
		metrics.ObserveOracleCall(string(o.Purpose), "ok", time.Since(start))
	}
}

func (c *ChatModelOracle) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *ChatModelOracle) messages(prompt string) []*schema.Message {
	return []*schema.Message{schema.UserMessage(prompt)}
}

func (c *ChatModelOracle) modelOptions(o Options) []einomodel.Option {
	var opts []einomodel.Option
	if o.Temperature != nil {
		opts = append(opts, einomodel.WithTemperature(*o.Temperature))
	}
	if o.MaxTokens != nil {
		opts = append(opts, einomodel.WithMaxTokens(*o.MaxTokens))
	}
	if o.TopP != nil {
		opts = append(opts, einomodel.WithTopP(*o.TopP))
	}
	return opts
}

// classify turns a deadline hit into ErrTimeout.
func (c *ChatModelOracle) classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %v", ErrTimeout, c.timeout, err)
	}
	return err
}

func (c *ChatModelOracle) logUsage(purpose Purpose, out *schema.Message) {
	if out == nil || out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	usage := out.ResponseMeta.Usage
	inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(c.modelName))
	logx.Debug().
		Str("purpose", string(purpose)).
		Str("model", c.modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", totalC).
		Msg("LLM usage")
}
