package context

import (
	"context"
	"log/slog"
	"time"

	"github.com/nezhahq/sysmon/model"
)

type Trigger string

const (
	TriggerTimer  Trigger = "timer"
	TriggerManual Trigger = "manual"
)

// Run describes one execution of a scheduled report.
type Run struct {
	Kind      model.ReportKind
	PeriodKey string
	Trigger   Trigger
	StartedAt time.Time
}

func (r *Run) LogAttrs() []any {
	return []any{
		slog.String("kind", string(r.Kind)),
		slog.String("period", r.PeriodKey),
		slog.String("trigger", string(r.Trigger)),
	}
}

type Context struct {
	context.Context
}

type contextKey[T any, PT interface{ *T }] struct {
	ptr PT
}

func NewContext(ctx context.Context) *Context {
	return &Context{ctx}
}

func withValue[T any, PT interface{ *T }](parent *Context, val PT) *Context {
	var nilptr PT
	key := contextKey[T, PT]{nilptr}

	valCtx := context.WithValue(parent.Context, key, val)
	return &Context{valCtx}
}

func value[T any, PT interface{ *T }](ctx context.Context) PT {
	var nilptr PT
	key := contextKey[T, PT]{nilptr}

	val, _ := ctx.Value(key).(PT)
	return val
}

func (c *Context) WithRun(run *Run) *Context {
	return withValue(c, run)
}

// WithLogger attaches l. Loggers of a context carrying a Run are tagged with
// the run's attributes by Logger.
func (c *Context) WithLogger(l *slog.Logger) *Context {
	return withValue(c, l)
}

// RunFrom returns the run carried by ctx, or nil.
func RunFrom(ctx context.Context) *Run {
	return value[Run](ctx)
}

// Logger returns the logger carried by ctx, falling back to slog.Default.
func Logger(ctx context.Context) *slog.Logger {
	l := value[slog.Logger](ctx)
	if l == nil {
		l = slog.Default()
	}
	if run := RunFrom(ctx); run != nil {
		l = l.With(run.LogAttrs()...)
	}
	return l
}
