package report

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/nezhahq/sysmon/model"
	"github.com/nezhahq/sysmon/pkg/ntfy"
	svcctx "github.com/nezhahq/sysmon/service/context"
	"github.com/nezhahq/sysmon/service/summary"
)

var (
	dailyTags  = []string{"chart_with_upwards_trend", "computer"}
	weeklyTags = []string{"package", "arrow_up"}
	digestTags = []string{"warning", "rotating_light"}
)

// RunDaily sends the aggregate report of the UTC day containing day, unless
// it was already sent.
func (s *Scheduler) RunDaily(ctx context.Context, day time.Time, trigger svcctx.Trigger) (*Result, error) {
	from, _ := summary.DayWindow(day)
	return s.run(ctx, model.ReportDaily, summary.DayKey(from), trigger, func(ctx context.Context, key string) (*Result, error) {
		res := &Result{Kind: model.ReportDaily, PeriodKey: key}
		if done, err := s.alreadySent(ctx, res); done || err != nil {
			return res, err
		}

		clients, err := s.store.ListClients(ctx)
		if err != nil {
			return nil, err
		}
		if len(clients) == 0 {
			return skipped(res, "no clients registered"), nil
		}

		summaries := make([]*model.DailySummary, 0, len(clients))
		for _, c := range clients {
			sum, err := s.store.Summarize(ctx, c.ClientID, from)
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			summaries = append(summaries, sum)
		}
		if len(summaries) == 0 {
			return skipped(res, "no metrics for "+key), nil
		}

		title, body := summary.RenderDaily(s.localizer, key, summaries)
		msg := ntfy.Message{Title: title, Body: body, Priority: "default", Tags: dailyTags}
		return s.dispatch(ctx, res, msg, len(summaries))
	})
}

// RunWeekly sends the package backlog report of the current ISO week. It is
// skipped when disabled or when no client ever reported packages.
func (s *Scheduler) RunWeekly(ctx context.Context, trigger svcctx.Trigger) (*Result, error) {
	key := summary.ISOWeekKey(s.now())
	return s.run(ctx, model.ReportWeekly, key, trigger, func(ctx context.Context, key string) (*Result, error) {
		res := &Result{Kind: model.ReportWeekly, PeriodKey: key}
		if !s.cfg.WeeklyPackagesEnabled {
			return skipped(res, "weekly package report disabled"), nil
		}
		if done, err := s.alreadySent(ctx, res); done || err != nil {
			return res, err
		}

		sets, err := s.store.ListLatestPackageUpdates(ctx)
		if err != nil {
			return nil, err
		}
		if len(sets) == 0 {
			return skipped(res, "no package update data"), nil
		}

		report := summary.WeeklyPackages(key, sets)
		title, body := summary.RenderWeekly(s.localizer, report)
		msg := ntfy.Message{Title: title, Body: body, Priority: report.Priority, Tags: weeklyTags}
		return s.dispatch(ctx, res, msg, len(report.Clients))
	})
}

// RunAlertDigest sends every pending alert in one notification and marks
// the batch notified. The period key names the newest alert of the batch,
// so a batch is never sent twice.
func (s *Scheduler) RunAlertDigest(ctx context.Context, trigger svcctx.Trigger) (*Result, error) {
	pending, err := s.store.ListUnnotifiedAlerts(ctx, "", 0)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return &Result{Kind: model.ReportAlertDigest, Outcome: OutcomeSkipped, Message: "no pending alerts"}, nil
	}

	newest := slices.MaxFunc(pending, compareAlert)
	key := "digest-" + strconv.FormatUint(newest.ID, 10)
	cutoff := newest.RecordedAt

	return s.run(ctx, model.ReportAlertDigest, key, trigger, func(ctx context.Context, key string) (*Result, error) {
		res := &Result{Kind: model.ReportAlertDigest, PeriodKey: key}
		done, err := s.alreadySent(ctx, res)
		if err != nil {
			return res, err
		}
		if !done {
			title, body := summary.RenderAlertDigest(s.localizer, pending)
			msg := ntfy.Message{Title: title, Body: body, Priority: "high", Tags: digestTags}
			if res, err = s.dispatch(ctx, res, msg, len(pending)); err != nil {
				return res, err
			}
		}

		n, err := s.store.MarkNotified(ctx, cutoff)
		if err != nil {
			return nil, err
		}
		svcctx.Logger(ctx).Debug("alerts marked notified", "count", n, "cutoff", cutoff)
		return res, nil
	})
}

func compareAlert(a, b model.Alert) int {
	if c := a.RecordedAt.Compare(b.RecordedAt); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

func (s *Scheduler) alreadySent(ctx context.Context, res *Result) (bool, error) {
	sent, err := s.store.ReportSent(ctx, res.PeriodKey)
	if err != nil {
		return false, err
	}
	if sent {
		res.Outcome = OutcomeAlreadySent
		res.Message = fmt.Sprintf("%s report for %s already sent", res.Kind, res.PeriodKey)
	}
	return sent, nil
}

func skipped(res *Result, reason string) *Result {
	res.Outcome = OutcomeSkipped
	res.Message = reason
	return res
}

// dispatch sends msg and records the marker. A failed send records nothing,
// leaving the period eligible for another attempt.
func (s *Scheduler) dispatch(ctx context.Context, res *Result, msg ntfy.Message, recipients int) (*Result, error) {
	res.Recipients = recipients
	if err := s.sender.Send(ctx, msg); err != nil {
		res.Outcome = OutcomeFailed
		res.Message = err.Error()
		return res, err
	}

	err := s.store.RecordReport(ctx, &model.ReportMarker{
		Kind:           res.Kind,
		PeriodKey:      res.PeriodKey,
		SentAt:         s.now().UTC(),
		RecipientCount: recipients,
		Content:        msg.Body,
	})
	if errors.Is(err, model.ErrDuplicate) {
		svcctx.Logger(ctx).Warn("report marker already present after sending")
		err = nil
	}
	if err != nil {
		return nil, err
	}
	res.Outcome = OutcomeSent
	res.Message = fmt.Sprintf("%s report sent for %d clients", res.Kind, recipients)
	return res, nil
}
