package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/nezhahq/sysmon/model"
	"github.com/nezhahq/sysmon/pkg/ntfy"
	svcctx "github.com/nezhahq/sysmon/service/context"
)

var ErrStopped = errors.New("scheduler stopped")

const eventReport = "report"

type Outcome string

const (
	OutcomeSent        Outcome = "sent"
	OutcomeAlreadySent Outcome = "already_sent"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeFailed      Outcome = "failed"
)

type Result struct {
	Kind       model.ReportKind `json:"kind"`
	PeriodKey  string           `json:"period_key"`
	Outcome    Outcome          `json:"status"`
	Recipients int              `json:"recipients"`
	Message    string           `json:"message"`
}

// Store is the part of the snapshot store the scheduler reads and writes.
type Store interface {
	ListClients(ctx context.Context) ([]model.Client, error)
	Summarize(ctx context.Context, clientID string, day time.Time) (*model.DailySummary, error)
	ListLatestPackageUpdates(ctx context.Context) ([]*model.PackageUpdateSet, error)
	ListUnnotifiedAlerts(ctx context.Context, clientID string, limit int) ([]model.Alert, error)
	MarkNotified(ctx context.Context, cutoff time.Time) (int64, error)
	ReportSent(ctx context.Context, periodKey string) (bool, error)
	RecordReport(ctx context.Context, m *model.ReportMarker) error
	Prune(ctx context.Context, retentionDays int) (model.PruneResult, error)
}

type Publisher interface {
	Publish(eventType string, data any)
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithPublisher(p Publisher) Option {
	return func(s *Scheduler) { s.publisher = p }
}

// Scheduler fires the daily, weekly and digest reports on a UTC timer and
// serves manual triggers through the same path. Runs of one period are
// shared, and runs of one kind never overlap.
type Scheduler struct {
	cfg           model.NotificationConfig
	retentionDays int
	store         Store
	sender        ntfy.Sender
	localizer     model.Localizer
	logger        *slog.Logger
	publisher     Publisher
	now           func() time.Time

	cron    *cron.Cron
	group   singleflight.Group
	kindMu  map[model.ReportKind]*sync.Mutex
	baseCtx context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

func New(conf *model.Config, store Store, sender ntfy.Sender, localizer model.Localizer, logger *slog.Logger, opts ...Option) *Scheduler {
	logger = logger.With("component", "scheduler")
	ctx, cancel := context.WithCancel(context.Background())
	cl := cronLogger{logger}
	s := &Scheduler{
		cfg:           conf.Notifications,
		retentionDays: conf.Database.RetentionDays,
		store:         store,
		sender:        sender,
		localizer:     localizer,
		logger:        logger,
		now:           time.Now,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		kindMu: map[model.ReportKind]*sync.Mutex{
			model.ReportDaily:       {},
			model.ReportWeekly:      {},
			model.ReportAlertDigest: {},
		},
		baseCtx: ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers the timer jobs and starts the timer.
func (s *Scheduler) Start() error {
	daily := fmt.Sprintf("0 %d %d * * *", s.cfg.DailyReportMinuteUTC, s.cfg.DailyReportHourUTC)
	if _, err := s.cron.AddFunc(daily, s.dailyJob); err != nil {
		return fmt.Errorf("schedule daily report: %w", err)
	}
	s.logger.Info("daily report scheduled", "spec", daily)

	if s.cfg.WeeklyPackagesEnabled {
		weekly := fmt.Sprintf("0 %d %d * * %d", s.cfg.WeeklyPackagesMinuteUTC, s.cfg.WeeklyPackagesHourUTC, s.cfg.WeeklyWeekday())
		if _, err := s.cron.AddFunc(weekly, s.weeklyJob); err != nil {
			return fmt.Errorf("schedule weekly report: %w", err)
		}
		s.logger.Info("weekly package report scheduled", "spec", weekly)
	}

	if n := s.cfg.AlertDigestIntervalMinutes; n > 0 {
		digest := fmt.Sprintf("@every %dm", n)
		if _, err := s.cron.AddFunc(digest, s.digestJob); err != nil {
			return fmt.Errorf("schedule alert digest: %w", err)
		}
		s.logger.Info("alert digest scheduled", "spec", digest)
	}

	s.cron.Start()
	return nil
}

// Stop halts the timer, cancels in-flight runs and waits for them until ctx
// is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	cronCtx := s.cron.Stop()
	s.cancel()

	done := make(chan struct{})
	go func() {
		<-cronCtx.Done()
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) dailyJob() {
	yesterday := s.now().UTC().AddDate(0, 0, -1)
	if _, err := s.RunDaily(s.baseCtx, yesterday, svcctx.TriggerTimer); err != nil {
		s.logger.Error("daily report", "error", err)
	}
	if errors.Is(s.baseCtx.Err(), context.Canceled) {
		return
	}
	res, err := s.store.Prune(s.baseCtx, s.retentionDays)
	if err != nil {
		s.logger.Error("prune", "error", err)
		return
	}
	s.logger.Info("pruned old data",
		"snapshots", res.Snapshots, "alerts", res.Alerts, "package_sets", res.PackageSets,
		"retention_days", s.retentionDays)
}

func (s *Scheduler) weeklyJob() {
	if _, err := s.RunWeekly(s.baseCtx, svcctx.TriggerTimer); err != nil {
		s.logger.Error("weekly package report", "error", err)
	}
}

func (s *Scheduler) digestJob() {
	if _, err := s.RunAlertDigest(s.baseCtx, svcctx.TriggerTimer); err != nil {
		s.logger.Error("alert digest", "error", err)
	}
}

func (s *Scheduler) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.wg.Add(1)
	return true
}

// run executes fn once per kind and period key. Concurrent callers for the
// same key share the result; the work itself is bound to the scheduler's
// lifetime, not to ctx, which only limits how long the caller waits.
func (s *Scheduler) run(ctx context.Context, kind model.ReportKind, key string, trigger svcctx.Trigger,
	fn func(ctx context.Context, key string) (*Result, error)) (*Result, error) {
	ch := s.group.DoChan(string(kind)+"/"+key, func() (any, error) {
		if !s.track() {
			return nil, ErrStopped
		}
		defer s.wg.Done()

		mu := s.kindMu[kind]
		mu.Lock()
		defer mu.Unlock()

		run := &svcctx.Run{Kind: kind, PeriodKey: key, Trigger: trigger, StartedAt: s.now().UTC()}
		runCtx := svcctx.NewContext(s.baseCtx).WithLogger(s.logger).WithRun(run)
		log := svcctx.Logger(runCtx)

		res, err := fn(runCtx, key)
		switch {
		case err != nil:
			log.Error("report run failed", "error", err)
		default:
			log.Info("report run finished", "outcome", res.Outcome, "recipients", res.Recipients, "message", res.Message)
		}
		if err == nil && res.Outcome == OutcomeSent && s.publisher != nil {
			s.publisher.Publish(eventReport, res)
		}
		return res, err
	})

	select {
	case r := <-ch:
		res, _ := r.Val.(*Result)
		return res, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// cronLogger routes cron's own logging into slog.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
