package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"

	"github.com/nezhahq/sysmon/model"
	"github.com/nezhahq/sysmon/service/hub"
	"github.com/nezhahq/sysmon/service/report"
)

const (
	defaultAlertLimit  = 100
	defaultReportLimit = 50
)

func (h *handlers) health(c *gin.Context) (HealthResponse, error) {
	return HealthResponse{Status: "healthy", Timestamp: time.Now().UTC()}, nil
}

func (h *handlers) receiveMetrics(c *gin.Context) (*IngestResponse, error) {
	var form model.SnapshotForm
	if err := bind(c, &form); err != nil {
		return nil, err
	}
	res, err := h.app.IngestSnapshot(c.Request.Context(), &form)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Metrics stored successfully. Alerts: %d", len(res.Alerts))
	if res.Duplicate {
		msg = "Metrics already stored. Alerts: 0"
	}
	return &IngestResponse{Status: "ok", Message: msg, ReceivedAt: res.ReceivedAt}, nil
}

func (h *handlers) receivePackages(c *gin.Context) (*IngestResponse, error) {
	var form model.PackageUpdateForm
	if err := bind(c, &form); err != nil {
		return nil, err
	}
	set, receivedAt, err := h.app.IngestPackages(c.Request.Context(), &form)
	if err != nil {
		return nil, err
	}
	return &IngestResponse{
		Status:     "ok",
		Message:    fmt.Sprintf("Package updates stored: %d packages", set.TotalCount),
		ReceivedAt: receivedAt,
	}, nil
}

func (h *handlers) listClients(c *gin.Context) ([]*model.Client, error) {
	return h.app.ListClients(), nil
}

func (h *handlers) clientSummary(c *gin.Context) (*model.DailySummary, error) {
	return h.app.Summary(c.Request.Context(), c.Param("client_id"), c.Query("date"))
}

func (h *handlers) listAlerts(c *gin.Context) ([]model.Alert, error) {
	limit, err := intQuery(c, "limit", defaultAlertLimit)
	if err != nil {
		return nil, err
	}
	all := false
	if v := c.Query("all"); v != "" {
		if all, err = strconv.ParseBool(v); err != nil {
			return nil, model.NewValidationError("all", "must be a boolean")
		}
	}
	alerts, err := h.app.ListAlerts(c.Request.Context(), c.Query("client_id"), limit, all)
	if err != nil {
		return nil, err
	}
	return nonNil(alerts), nil
}

func (h *handlers) listPackages(c *gin.Context) ([]*model.PackageUpdateSet, error) {
	sets, err := h.app.Store.ListLatestPackageUpdates(c.Request.Context())
	if err != nil {
		return nil, err
	}
	return nonNil(sets), nil
}

func (h *handlers) getPackages(c *gin.Context) (*model.PackageUpdateSet, error) {
	return h.app.Store.GetLatestPackageUpdates(c.Request.Context(), c.Param("client_id"))
}

func (h *handlers) listReports(c *gin.Context) ([]model.ReportMarker, error) {
	limit, err := intQuery(c, "limit", defaultReportLimit)
	if err != nil {
		return nil, err
	}
	if limit > 1000 {
		return nil, model.NewValidationError("limit", "must be between 1 and 1000")
	}
	kind := model.ReportKind(c.Query("kind"))
	switch kind {
	case "", model.ReportDaily, model.ReportWeekly, model.ReportAlertDigest:
	default:
		return nil, model.NewValidationError("kind", "unknown report kind")
	}
	markers, err := h.app.Store.ListReports(c.Request.Context(), kind, limit)
	if err != nil {
		return nil, err
	}
	return nonNil(markers), nil
}

func (h *handlers) triggerDaily(c *gin.Context) (*report.Result, error) {
	return h.app.TriggerDaily(c.Request.Context(), c.Query("date"))
}

func (h *handlers) triggerWeekly(c *gin.Context) (*report.Result, error) {
	return h.app.TriggerWeekly(c.Request.Context())
}

func (h *handlers) triggerDigest(c *gin.Context) (*report.Result, error) {
	return h.app.TriggerAlertDigest(c.Request.Context())
}

// reportHandler answers manual triggers. A failed dispatch still carries the
// run result, with 502.
func reportHandler(handler handlerFunc[*report.Result]) func(*gin.Context) {
	return func(c *gin.Context) {
		res, err := handler(c)
		var nErr *model.NotificationError
		if err != nil && (res == nil || !errors.As(err, &nErr)) {
			writeError(c, err)
			return
		}

		var resp ReportResponse
		if cErr := copier.Copy(&resp, res); cErr != nil {
			writeError(c, cErr)
			return
		}
		resp.Status = string(res.Outcome)

		code := http.StatusOK
		if err != nil {
			loggerFrom(c).Warn("manual report not delivered", "kind", res.Kind, "error", err)
			code = http.StatusBadGateway
		}
		c.JSON(code, resp)
	}
}

func (h *handlers) liveFeed(c *gin.Context) {
	if err := h.app.Hub.ServeWS(c.Writer, c.Request); err != nil {
		if errors.Is(err, hub.ErrClosed) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: "shutting down"})
			return
		}
		loggerFrom(c).Debug("websocket upgrade", "error", err)
	}
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, model.NewValidationError(key, "must be a positive integer")
	}
	return n, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
