package context

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/nezhahq/sysmon/model"
)

func TestRunContext(t *testing.T) {
	base := NewContext(context.Background())
	if RunFrom(base) != nil {
		t.Fatal("expected no run on a fresh context")
	}

	run := &Run{Kind: model.ReportDaily, PeriodKey: "2024-05-05", Trigger: TriggerManual, StartedAt: time.Now()}
	ctx := base.WithRun(run)
	if got := RunFrom(ctx); got != run {
		t.Errorf("expected the attached run, got %+v", got)
	}

	var derived context.Context = ctx
	derived, cancel := context.WithCancel(derived)
	defer cancel()
	if RunFrom(derived) != run {
		t.Error("run must survive derived contexts")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := NewContext(context.Background()).
		WithLogger(l).
		WithRun(&Run{Kind: model.ReportWeekly, PeriodKey: "2024-W19", Trigger: TriggerTimer})
	Logger(ctx).Info("sent")

	out := buf.String()
	for _, want := range []string{"msg=sent", "kind=weekly", "period=2024-W19", "trigger=timer"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}

	if Logger(context.Background()) == nil {
		t.Error("expected a fallback logger")
	}
}
