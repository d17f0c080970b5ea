package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"github.com/patrickmn/go-cache"

	"github.com/nezhahq/sysmon/model"
	"github.com/nezhahq/sysmon/pkg/i18n"
	"github.com/nezhahq/sysmon/pkg/ntfy"
	svcctx "github.com/nezhahq/sysmon/service/context"
	"github.com/nezhahq/sysmon/service/hub"
	"github.com/nezhahq/sysmon/service/registry"
	"github.com/nezhahq/sysmon/service/report"
	"github.com/nezhahq/sysmon/service/store"
	"github.com/nezhahq/sysmon/service/summary"
)

var alertTags = []string{"warning", "computer"}

// App is the application context. It is built once at startup and handed to
// the HTTP layer; nothing in it is package-level state.
type App struct {
	Config    *model.Config
	Logger    *slog.Logger
	Store     *store.Store
	Clients   *registry.ClientClass
	Notifier  ntfy.Sender
	Scheduler *report.Scheduler
	Hub       *hub.Hub
	Localizer model.Localizer

	summaries *cache.Cache
	flightsMu sync.Mutex
	flights   map[*summaryFlight]struct{}
	now       func() time.Time
}

// summaryFlight is a Summarize call in progress. An ingest for the same key
// marks it stale so its result is not cached.
type summaryFlight struct {
	key   string
	stale bool
}

type Option func(*App)

func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

func New(ctx context.Context, conf *model.Config, logger *slog.Logger, st *store.Store, notifier ntfy.Sender, opts ...Option) (*App, error) {
	a := &App{
		Config:    conf,
		Logger:    logger,
		Store:     st,
		Notifier:  notifier,
		Hub:       hub.New(logger),
		Localizer: i18n.NewLocalizer(conf.Language),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	clients, err := registry.NewClientClass(ctx, st)
	if err != nil {
		return nil, err
	}
	a.Clients = clients

	if ttl := time.Duration(conf.SummaryCacheTTLSeconds) * time.Second; ttl > 0 {
		a.summaries = cache.New(ttl, 2*ttl)
		a.flights = make(map[*summaryFlight]struct{})
	}

	a.Scheduler = report.New(conf, st, notifier, a.Localizer, logger,
		report.WithClock(a.now),
		report.WithPublisher(a.Hub),
	)
	return a, nil
}

// Stop halts background work. The store stays open until Close.
func (a *App) Stop(ctx context.Context) error {
	err := a.Scheduler.Stop(ctx)
	a.Hub.Close()
	return err
}

func (a *App) Close() error {
	return a.Store.Close()
}

type IngestResult struct {
	ReceivedAt time.Time
	Duplicate  bool
	Alerts     []model.Alert
	Delivered  int
}

// IngestSnapshot stores one snapshot, records the alerts it raises and,
// unless configured otherwise, delivers them one by one. Delivery failures
// are logged and never undo what was stored.
func (a *App) IngestSnapshot(ctx context.Context, form *model.SnapshotForm) (*IngestResult, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	res := &IngestResult{ReceivedAt: a.now().UTC()}
	snap := form.Snapshot(res.ReceivedAt)

	_, client, err := a.Store.PutSnapshot(ctx, snap)
	if errors.Is(err, model.ErrDuplicate) {
		a.Logger.Info("duplicate snapshot ignored", "client_id", snap.ClientID, "collected_at", snap.CollectedAt)
		res.Duplicate = true
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	a.Clients.Update(client)
	a.invalidateSummary(snap.ClientID, snap.CollectedAt)
	a.Hub.Publish(hub.EventSnapshot, client)

	res.Alerts = a.Config.Alerts.Evaluate(snap, a.Localizer)
	for i := range res.Alerts {
		if _, err := a.Store.PutAlert(ctx, &res.Alerts[i]); err != nil {
			return nil, err
		}
		a.Hub.Publish(hub.EventAlert, res.Alerts[i])
	}

	if a.Config.Notifications.SendImmediateAlerts && len(res.Alerts) > 0 {
		delivered := a.dispatchAlerts(ctx, res.Alerts)
		res.Delivered = len(delivered)
		if err := a.Store.MarkAlertsNotified(ctx, delivered...); err != nil {
			a.Logger.Warn("mark delivered alerts", "client_id", snap.ClientID, "error", err)
		}
	}

	a.Logger.Info("snapshot received",
		"client_id", snap.ClientID, "hostname", snap.Hostname,
		"alerts", len(res.Alerts), "delivered", res.Delivered)
	return res, nil
}

// dispatchAlerts sends alerts in order and returns the ids that went out.
// Sends outlive the request; each is bounded by the notifier's timeout.
func (a *App) dispatchAlerts(ctx context.Context, alerts []model.Alert) []uint64 {
	ctx = context.WithoutCancel(ctx)
	delivered := make([]uint64, 0, len(alerts))
	for _, alert := range alerts {
		err := a.Notifier.Send(ctx, ntfy.Message{
			Title:    summary.AlertTitle(a.Localizer, alert.Hostname),
			Body:     alert.Message,
			Priority: "high",
			Tags:     alertTags,
		})
		if err != nil {
			a.Logger.Warn("alert not delivered", "alert_id", alert.ID, "metric", alert.MetricName, "error", err)
			continue
		}
		delivered = append(delivered, alert.ID)
	}
	return delivered
}

// IngestPackages stores form as the client's latest package set.
func (a *App) IngestPackages(ctx context.Context, form *model.PackageUpdateForm) (*model.PackageUpdateSet, time.Time, error) {
	if err := form.Validate(); err != nil {
		return nil, time.Time{}, err
	}
	receivedAt := a.now().UTC()

	var set model.PackageUpdateSet
	if err := copier.Copy(&set, form); err != nil {
		return nil, time.Time{}, err
	}
	set.Packages = model.PackageList(form.Packages)
	set.CollectedAt = receivedAt
	if form.Collected != nil && !form.Collected.IsZero() {
		set.CollectedAt = form.Collected.UTC()
	}

	if _, err := a.Store.PutPackageUpdates(ctx, &set); err != nil {
		return nil, time.Time{}, err
	}
	a.Logger.Info("package updates received",
		"client_id", set.ClientID, "packages", set.TotalCount, "security", set.SecurityUpdates)
	return &set, receivedAt, nil
}

func summaryKey(clientID string, day time.Time) string {
	return clientID + "/" + summary.DayKey(day)
}

func (a *App) invalidateSummary(clientID string, day time.Time) {
	if a.summaries == nil {
		return
	}
	key := summaryKey(clientID, day)

	a.flightsMu.Lock()
	defer a.flightsMu.Unlock()
	for f := range a.flights {
		if f.key == key {
			f.stale = true
		}
	}
	a.summaries.Delete(key)
}

func (a *App) beginSummary(key string) *summaryFlight {
	f := &summaryFlight{key: key}
	a.flightsMu.Lock()
	a.flights[f] = struct{}{}
	a.flightsMu.Unlock()
	return f
}

// endSummary caches sum unless an ingest touched its day since beginSummary.
func (a *App) endSummary(f *summaryFlight, sum *model.DailySummary) {
	a.flightsMu.Lock()
	defer a.flightsMu.Unlock()
	delete(a.flights, f)
	if sum != nil && !f.stale {
		a.summaries.SetDefault(f.key, sum)
	}
}

// Summary returns the daily summary of clientID for date (YYYY-MM-DD), or
// for today when date is empty. Finished days are cached.
func (a *App) Summary(ctx context.Context, clientID, date string) (*model.DailySummary, error) {
	day := a.now().UTC()
	if date != "" {
		var err error
		if day, err = summary.ParseDay(date); err != nil {
			return nil, err
		}
	}

	_, to := summary.DayWindow(day)
	if a.summaries == nil || to.After(a.now()) {
		return a.Store.Summarize(ctx, clientID, day)
	}

	key := summaryKey(clientID, day)
	if v, ok := a.summaries.Get(key); ok {
		return v.(*model.DailySummary), nil
	}

	f := a.beginSummary(key)
	sum, err := a.Store.Summarize(ctx, clientID, day)
	a.endSummary(f, sum)
	if err != nil {
		return nil, err
	}
	return sum, nil
}

func (a *App) ListClients() []*model.Client {
	return a.Clients.GetSortedList()
}

// ListAlerts returns pending alerts oldest first, or every alert newest first
// when all is set.
func (a *App) ListAlerts(ctx context.Context, clientID string, limit int, all bool) ([]model.Alert, error) {
	if limit < 1 || limit > 1000 {
		return nil, model.NewValidationError("limit", "must be between 1 and 1000")
	}
	if all {
		return a.Store.ListAlerts(ctx, clientID, limit)
	}
	return a.Store.ListUnnotifiedAlerts(ctx, clientID, limit)
}

// TriggerDaily runs the daily report for date, or for yesterday when date is
// empty, through the same path as the timer.
func (a *App) TriggerDaily(ctx context.Context, date string) (*report.Result, error) {
	day := a.now().UTC().AddDate(0, 0, -1)
	if date != "" {
		var err error
		if day, err = summary.ParseDay(date); err != nil {
			return nil, err
		}
	}
	return a.Scheduler.RunDaily(ctx, day, svcctx.TriggerManual)
}

func (a *App) TriggerWeekly(ctx context.Context) (*report.Result, error) {
	return a.Scheduler.RunWeekly(ctx, svcctx.TriggerManual)
}

func (a *App) TriggerAlertDigest(ctx context.Context) (*report.Result, error) {
	return a.Scheduler.RunAlertDigest(ctx, svcctx.TriggerManual)
}
