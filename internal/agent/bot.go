// Package agent is the conversational front of the query bot: one Submit per user turn.
package agent

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/Chative-querybot/server/internal/agent/graph"
	"github.com/Chative-querybot/server/internal/agent/graph/conversations"
	"github.com/Chative-querybot/server/internal/agent/model"
	"github.com/Chative-querybot/server/internal/metrics"
	logx "github.com/Chative-querybot/server/pkg/logger"
)

const (
	InvalidInputMessage = "Error: Invalid input. Please enter a valid query."
	RecoveryMessage     = "Sorry, something went wrong while processing your request."

	hintFormat = "(Hint: Hey, I am currently working with the table: %s). If this is not the table you want to work with, please let me know."
)

type Bot struct {
	runner   graph.Runner
	sessions *conversations.SessionManager
}

func New(runner graph.Runner, repo model.SessionRepository) *Bot {
	return &Bot{
		runner:   runner,
		sessions: conversations.NewSessionManager(repo),
	}
}

// Submit runs one turn and returns the full response text. It never fails.
func (b *Bot) Submit(ctx context.Context, sessionID, utterance string) string {
	return b.SubmitStream(ctx, sessionID, utterance, nil)
}

// SubmitStream is Submit with every piece of response text delivered to sink as
// it becomes available. The returned string is the complete response.
func (b *Bot) SubmitStream(ctx context.Context, sessionID, utterance string, sink model.FragmentSink) string {
	start := time.Now()
	log := logx.Session(sessionID)

	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		b.observe(sessionID, model.OutcomeInvalidInput, start)
		emit(sink, InvalidInputMessage)
		return InvalidInputMessage
	}

	var state *model.TurnState
	err := b.sessions.WithSession(ctx, sessionID, func(s *model.Session) (err error) {
		state = &model.TurnState{Session: s, Utterance: utterance, Sink: sink}
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Turn panicked")
				err = fmt.Errorf("turn panicked: %v", r)
			}
			if err != nil {
				s.Reset()
			}
		}()

		out, err := b.runner.Run(ctx, state)
		if err != nil {
			return err
		}
		state = out
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("Turn failed")
		b.observe(sessionID, model.OutcomeError, start)
		if state == nil || !state.Streamed {
			emit(sink, RecoveryMessage)
		}
		return RecoveryMessage
	}

	if !state.Streamed {
		emit(sink, state.Response)
	}
	b.observe(sessionID, state.Outcome, start)
	return state.Response
}

// CurrentTable returns the table the session is working with, or "".
func (b *Bot) CurrentTable(ctx context.Context, sessionID string) string {
	s, err := b.sessions.Snapshot(ctx, sessionID)
	if err != nil {
		logx.Session(sessionID).Warn().Err(err).Msg("Failed to load session")
		return ""
	}
	return s.Context.Table
}

// Hint tells the user which table the session is bound to, or "" when none.
func (b *Bot) Hint(ctx context.Context, sessionID string) string {
	table := b.CurrentTable(ctx, sessionID)
	if table == "" {
		return ""
	}
	return fmt.Sprintf(hintFormat, table)
}

func (b *Bot) ResetSession(ctx context.Context, sessionID string) error {
	return b.sessions.Reset(ctx, sessionID)
}

func (b *Bot) observe(sessionID string, outcome model.Outcome, start time.Time) {
	elapsed := time.Since(start)
	metrics.ObserveTurn(string(outcome), elapsed)
	logx.Session(sessionID).Info().
		Str("outcome", string(outcome)).
		Dur("elapsed", elapsed).
		Msg("Turn completed")
}

func emit(sink model.FragmentSink, text string) {
	if sink != nil && text != "" {
		sink(text)
	}
}
