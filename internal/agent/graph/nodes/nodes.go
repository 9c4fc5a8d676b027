package nodes

import (
	"context"
	"errors"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-querybot/server/internal/agent/intent"
	"github.com/Chative-querybot/server/internal/agent/model"
	"github.com/Chative-querybot/server/internal/agent/query"
	"github.com/Chative-querybot/server/internal/agent/respond"
	"github.com/Chative-querybot/server/internal/agent/slots"
	logx "github.com/Chative-querybot/server/pkg/logger"
)

type Schema interface {
	Tables(ctx context.Context) []string
	Columns(ctx context.Context, table string) []string
}

type Classifier interface {
	Classify(ctx context.Context, utterance string, tables []string) model.Intent
	Answer(ctx context.Context, utterance string) string
}

type Resolver interface {
	Resolve(ctx context.Context, utterance string, session *model.Session) slots.Outcome
}

type Synthesizer interface {
	Synthesize(ctx context.Context, q model.SlotQuery) (string, error)
}

type Executor interface {
	Execute(ctx context.Context, sql string) (*model.ExecResult, error)
}

type Formatter interface {
	Format(ctx context.Context, table string, res *model.ExecResult, sink model.FragmentSink) string
}

// NewClassifyNode fetches the table list and classifies the utterance.
func NewClassifyNode(schema Schema, c Classifier) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *model.TurnState) (*model.TurnState, error) {
		s.Tables = schema.Tables(ctx)
		s.Intent = c.Classify(ctx, s.Utterance, s.Tables)
		return s, nil
	})
}

// NewIntentCondition routes on the classified intent.
func NewIntentCondition() func(context.Context, *model.TurnState) (string, error) {
	return func(ctx context.Context, s *model.TurnState) (string, error) {
		switch s.Intent {
		case model.IntentSchemaListing:
			return NodeSchemaListing, nil
		case model.IntentGeneric:
			return NodeGeneric, nil
		case model.IntentDataQuery:
			return NodeResolve, nil
		default:
			return NodeUnclassifiable, nil
		}
	}
}

func NewSchemaListingNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *model.TurnState) (*model.TurnState, error) {
		s.Session.Reset()
		return s.Finish(model.OutcomeSchemaListing, intent.ListingResponse(s.Tables)), nil
	})
}

// NewGenericNode answers off-topic utterances directly. The session is cleared so a
// half-resolved query does not leak into the next database question.
func NewGenericNode(c Classifier) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *model.TurnState) (*model.TurnState, error) {
		answer := c.Answer(ctx, s.Utterance)
		s.Session.Reset()
		return s.Finish(model.OutcomeGeneric, answer), nil
	})
}

func NewUnclassifiableNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *model.TurnState) (*model.TurnState, error) {
		return s.Finish(model.OutcomeUnclassifiable, intent.ApologyMessage), nil
	})
}

// NewResolveNode runs the slot state machine; a clarification ends the turn and keeps
// the session for the next utterance.
func NewResolveNode(r Resolver) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *model.TurnState) (*model.TurnState, error) {
		out := r.Resolve(ctx, s.Utterance, s.Session)
		if !out.Ready {
			logx.Session(s.Session.ID).Debug().Str("field", string(out.Field)).Msg("Clarification needed")
			return s.Finish(model.OutcomeClarification, out.Clarification), nil
		}
		return s, nil
	})
}

func NewSynthesizeNode(syn Synthesizer) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *model.TurnState) (*model.TurnState, error) {
		sql, err := syn.Synthesize(ctx, s.Session.Context.Query())
		if err != nil {
			s.Session.Reset()
			msg := query.UnsalvageableMessage
			if errors.Is(err, query.ErrInvalidShape) {
				msg = query.InvalidShapeMessage
			}
			return s.Finish(model.OutcomeSynthesisFailed, msg), nil
		}
		s.SQL = sql
		return s, nil
	})
}

func NewExecuteNode(e Executor) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *model.TurnState) (*model.TurnState, error) {
		res, err := e.Execute(ctx, s.SQL)
		if err != nil {
			s.Session.Reset()
			return s.Finish(model.OutcomeExecutionFailed, respond.NoResultsMessage), nil
		}
		s.Result = res
		return s, nil
	})
}

func NewFormatNode(f Formatter) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *model.TurnState) (*model.TurnState, error) {
		text := f.Format(ctx, s.Session.Context.Table, s.Result, s.Sink)
		s.Streamed = s.Sink != nil
		s.Session.Reset()
		return s.Finish(model.OutcomeAnswered, text), nil
	})
}

// NewContinueCondition ends the run once a node has finished the turn.
func NewContinueCondition(next string) func(context.Context, *model.TurnState) (string, error) {
	return func(ctx context.Context, s *model.TurnState) (string, error) {
		if s.Outcome != "" {
			return compose.END, nil
		}
		return next, nil
	}
}
