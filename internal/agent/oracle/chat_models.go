package oracle

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	"github.com/Chative-querybot/server/internal/agent/model"
	logx "github.com/Chative-querybot/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey    string
	BaseURL   string
	Oracle    model.OracleModelConfig
	Formatter model.FormatterModelConfig
}

// ChatModels holds the resolver oracle and the formatter oracle.
type ChatModels struct {
	Oracle    *ChatModelOracle
	Formatter *ChatModelOracle
}

// NewChatModels creates both Gemini chat models over one genai client.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	oracleModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Oracle.Model,
		Temperature: &config.Oracle.Temperature,
		MaxTokens:   &config.Oracle.MaxTokens,
		TopP:        &config.Oracle.TopP,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(int32(512)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating oracle model")
		return nil, fmt.Errorf("error creating oracle model: %w", err)
	}

	formatterModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Formatter.Model,
		Temperature: &config.Formatter.Temperature,
		MaxTokens:   &config.Formatter.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating formatter model")
		return nil, fmt.Errorf("error creating formatter model: %w", err)
	}

	return &ChatModels{
		Oracle:    NewChatModelOracle(oracleModel, config.Oracle.Model, config.Oracle.Timeout),
		Formatter: NewChatModelOracle(formatterModel, config.Formatter.Model, config.Oracle.Timeout),
	}, nil
}
