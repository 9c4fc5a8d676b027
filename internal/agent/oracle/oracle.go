// Package oracle is the text-completion boundary used for classification, slot matching,
// SQL repair and response narration.
package oracle

import (
	"context"
	"errors"
	"iter"
)

// Purpose labels a completion for logs and metrics.
type Purpose string

const (
	PurposeClassify          Purpose = "classify"
	PurposeMatchTable        Purpose = "match_table"
	PurposeMatchColumns      Purpose = "match_columns"
	PurposeExtractConditions Purpose = "extract_conditions"
	PurposeValidateSQL       Purpose = "validate_sql"
	PurposeFormat            Purpose = "format"
	PurposeGeneric           Purpose = "generic"
)

var (
	ErrEmptyCompletion = errors.New("oracle returned an empty completion")
	ErrTimeout         = errors.New("oracle call timed out")
)

// Oracle completes prompts. Implementations must be safe for concurrent use.
type Oracle interface {
	Complete(ctx context.Context, prompt string, opts ...Option) (string, error)
	// Stream yields fragments in order; a non-nil error ends the sequence.
	Stream(ctx context.Context, prompt string, opts ...Option) iter.Seq2[string, error]
}

type Options struct {
	Temperature *float32
	MaxTokens   *int
	TopP        *float32
	Purpose     Purpose
}

type Option func(*Options)

func WithTemperature(t float32) Option {
	return func(o *Options) { o.Temperature = &t }
}

func WithMaxTokens(n int) Option {
	return func(o *Options) { o.MaxTokens = &n }
}

func WithTopP(p float32) Option {
	return func(o *Options) { o.TopP = &p }
}

func WithPurpose(p Purpose) Option {
	return func(o *Options) { o.Purpose = p }
}

// ApplyOptions folds opts over base; later options win.
func ApplyOptions(base Options, opts ...Option) Options {
	out := base
	for _, opt := range opts {
		if opt != nil {
			opt(&out)
		}
	}
	return out
}
