package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/espalier/pkg/command"
	"github.com/aretw0/espalier/pkg/domain"
)

type chain []command.Listener

// Chain returns a listener that forwards every notification to each listener in order.
// Nil listeners are skipped.
func Chain(listeners ...command.Listener) command.Listener {
	var c chain
	for _, l := range listeners {
		if l != nil {
			c = append(c, l)
		}
	}
	return c
}

func (c chain) OnAllow(ctx *command.Context, cmd command.Command, res *domain.Result) {
	for _, l := range c {
		l.OnAllow(ctx, cmd, res)
	}
}

func (c chain) OnExecute(ctx *command.Context, cmd command.Command, res *domain.Result) {
	for _, l := range c {
		l.OnExecute(ctx, cmd, res)
	}
}

func (c chain) OnUndo(ctx *command.Context, cmd command.Command, res *domain.Result) {
	for _, l := range c {
		l.OnUndo(ctx, cmd, res)
	}
}

// NewLogListener returns a listener that writes one audit record per call.
// Rejected commands are logged at Warn, everything else at Info.
func NewLogListener(logger *slog.Logger) command.Listener {
	logResult := func(op command.Operation) func(*command.Context, command.Command, *domain.Result) {
		return func(ctx *command.Context, cmd command.Command, res *domain.Result) {
			level := slog.LevelInfo
			if res.HasError() {
				level = slog.LevelWarn
			}
			attrs := []any{
				"op", op,
				"command", command.NameOf(cmd),
				"detail", cmd.String(),
				"result", res.Type(),
			}
			if ctx != nil && ctx.Store() != nil {
				attrs = append(attrs, "diagram", ctx.Store().DiagramID())
			}
			if !res.IsSuccess() {
				attrs = append(attrs, "violations", res.String())
			}
			logger.Log(context.Background(), level, "command", attrs...)
		}
	}
	return command.ListenerFuncs{
		AfterAllow:   logResult(command.OpAllow),
		AfterExecute: logResult(command.OpExecute),
		AfterUndo:    logResult(command.OpUndo),
	}
}
