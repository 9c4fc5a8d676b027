// Package intent decides what kind of request an utterance is before any slot work.
package intent

import (
	"context"

	"github.com/Chative-querybot/server/internal/agent/graph/parsers"
	"github.com/Chative-querybot/server/internal/agent/graph/prompts"
	"github.com/Chative-querybot/server/internal/agent/model"
	"github.com/Chative-querybot/server/internal/agent/oracle"
	logx "github.com/Chative-querybot/server/pkg/logger"
)

const (
	// ApologyMessage answers unclassifiable utterances and failed generic answers.
	ApologyMessage = "Sorry, I couldn't understand your request. Could you rephrase it?"
	listingPrefix  = "Available tables: "
)

type Classifier struct {
	oracle oracle.Oracle
}

func NewClassifier(o oracle.Oracle) *Classifier {
	return &Classifier{oracle: o}
}

// Classify never fails: every oracle problem maps to IntentUnclassifiable.
func (c *Classifier) Classify(ctx context.Context, utterance string, tables []string) model.Intent {
	p, err := prompts.RenderClassify(ctx, utterance, tables)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to render classify prompt")
		return model.IntentUnclassifiable
	}

	out, err := c.oracle.Complete(ctx, p,
		oracle.WithPurpose(oracle.PurposeClassify),
		oracle.WithTemperature(0),
	)
	if err != nil {
		logx.Warn().Err(err).Msg("Intent classification failed")
		return model.IntentUnclassifiable
	}

	intent := parsers.ParseIntent(out)
	logx.Debug().Str("intent", intent.String()).Msg("Classified utterance")
	return intent
}

// Answer replies to a non-database utterance directly.
func (c *Classifier) Answer(ctx context.Context, utterance string) string {
	p, err := prompts.RenderGeneric(ctx, utterance)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to render generic prompt")
		return ApologyMessage
	}
	out, err := c.oracle.Complete(ctx, p, oracle.WithPurpose(oracle.PurposeGeneric))
	if err != nil {
		logx.Warn().Err(err).Msg("Generic answer failed")
		return ApologyMessage
	}
	return out
}

// ListingResponse renders the schema-listing answer.
func ListingResponse(tables []string) string {
	return listingPrefix + prompts.JoinList(tables)
}
