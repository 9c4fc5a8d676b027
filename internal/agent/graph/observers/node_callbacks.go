package observers

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"

	"github.com/Chative-querybot/server/internal/agent/model"
	logx "github.com/Chative-querybot/server/pkg/logger"
)

type nodeStartKey struct{ name string }

// newNodeHandler logs entry, exit and latency of every lambda node in the turn graph.
func newNodeHandler() einocb.Handler {
	return einocb.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *einocb.RunInfo, input einocb.CallbackInput) context.Context {
			if !isNode(info) {
				return ctx
			}
			ev := logx.Debug().Str("node", info.Name)
			if s, ok := input.(*model.TurnState); ok && s != nil && s.Session != nil {
				ev = ev.Str("session_id", s.Session.ID).Str("state", s.Session.Context.State().String())
			}
			ev.Msg("Node started")
			return context.WithValue(ctx, nodeStartKey{info.Name}, time.Now())
		}).
		OnEndFn(func(ctx context.Context, info *einocb.RunInfo, output einocb.CallbackOutput) context.Context {
			if !isNode(info) {
				return ctx
			}
			ev := logx.Debug().Str("node", info.Name)
			if start, ok := ctx.Value(nodeStartKey{info.Name}).(time.Time); ok {
				ev = ev.Dur("elapsed", time.Since(start))
			}
			if s, ok := output.(*model.TurnState); ok && s != nil && s.Outcome != "" {
				ev = ev.Str("outcome", string(s.Outcome))
			}
			ev.Msg("Node finished")
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			if info != nil {
				logx.Error().Err(err).Str("node", info.Name).Str("component", string(info.Component)).Msg("Node failed")
			}
			return ctx
		}).
		Build()
}

func isNode(info *einocb.RunInfo) bool {
	return info != nil && info.Component == compose.ComponentOfLambda
}
