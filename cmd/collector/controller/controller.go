package controller

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"

	"github.com/nezhahq/sysmon/model"
	"github.com/nezhahq/sysmon/pkg/utils"
	"github.com/nezhahq/sysmon/service/app"
)

const (
	requestIDHeader = "X-Request-ID"
	ctxKeyRequestID = "request_id"
	ctxKeyLogger    = "logger"
)

// ServeWeb builds the HTTP handler of the collector.
func ServeWeb(a *app.App) http.Handler {
	r := gin.New()
	r.Use(requestID(), accessLog(a.Logger), recovery(a.Logger))
	if a.Config.Debug {
		pprof.Register(r)
	}
	routers(r, a)
	return r
}

func routers(r *gin.Engine, a *app.App) {
	h := &handlers{app: a}

	r.GET("/health", commonHandler(h.health))
	r.GET("/ws", h.liveFeed)

	r.POST("/metrics", ingestHandler(h.receiveMetrics))
	r.POST("/packages", ingestHandler(h.receivePackages))

	r.GET("/clients", commonHandler(h.listClients))
	r.GET("/clients/:client_id/summary", commonHandler(h.clientSummary))
	r.GET("/alerts", commonHandler(h.listAlerts))
	r.GET("/packages", commonHandler(h.listPackages))
	r.GET("/packages/:client_id", commonHandler(h.getPackages))

	reports := r.Group("/reports")
	reports.GET("", commonHandler(h.listReports))
	reports.POST("/daily", reportHandler(h.triggerDaily))
	reports.POST("/weekly", reportHandler(h.triggerWeekly))
	reports.POST("/digest", reportHandler(h.triggerDigest))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Detail: c.Request.URL.Path})
	})
}

type handlers struct {
	app *app.App
}

type handlerFunc[T any] func(c *gin.Context) (T, error)

// statusError pins the HTTP status of err.
type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }

func commonHandler[T any](handler handlerFunc[T]) func(*gin.Context) {
	return func(c *gin.Context) {
		data, err := handler(c)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, data)
	}
}

// ingestHandler reports an unavailable store as 503 so agents retry later.
func ingestHandler[T any](handler handlerFunc[T]) func(*gin.Context) {
	return commonHandler(func(c *gin.Context) (T, error) {
		data, err := handler(c)
		var sErr *model.StorageError
		if errors.As(err, &sErr) {
			err = &statusError{code: http.StatusServiceUnavailable, err: err}
		}
		return data, err
	})
}

func writeError(c *gin.Context, err error) {
	code, resp := errorResponse(err)
	if code >= http.StatusInternalServerError {
		loggerFrom(c).Error("request failed", "status", code, "error", err)
	}
	c.AbortWithStatusJSON(code, resp)
}

func errorResponse(err error) (int, ErrorResponse) {
	var (
		stErr *statusError
		vErr  *model.ValidationError
		sErr  *model.StorageError
		nErr  *model.NotificationError
		bErr  *bindError
	)
	switch {
	case errors.As(err, &stErr):
		_, resp := errorResponse(stErr.err)
		return stErr.code, resp
	case errors.As(err, &bErr):
		return http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Detail: bErr.Error()}
	case errors.As(err, &vErr):
		return http.StatusBadRequest, ErrorResponse{Error: "validation failed", Detail: vErr.Error()}
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "not found"}
	case errors.As(err, &sErr):
		return http.StatusInternalServerError, ErrorResponse{Error: "storage unavailable", Detail: sErr.Op}
	case errors.As(err, &nErr):
		return http.StatusBadGateway, ErrorResponse{Error: "notification failed", Detail: nErr.Error()}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal error"}
	}
}

type bindError struct {
	err error
}

func (e *bindError) Error() string { return e.err.Error() }
func (e *bindError) Unwrap() error { return e.err }

func bind(c *gin.Context, form any) error {
	if err := c.ShouldBindJSON(form); err != nil {
		return &bindError{err: err}
	}
	return nil
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = utils.NewRequestID()
		}
		c.Set(ctxKeyRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func loggerFrom(c *gin.Context) *slog.Logger {
	l, ok := c.Get(ctxKeyLogger)
	if !ok {
		return slog.Default()
	}
	return l.(*slog.Logger)
}

func accessLog(logger *slog.Logger) gin.HandlerFunc {
	logger = logger.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		reqLogger := logger.With("request_id", c.GetString(ctxKeyRequestID))
		c.Set(ctxKeyLogger, reqLogger)

		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		reqLogger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

func recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		logger.Error("panic while serving request",
			"path", c.Request.URL.Path,
			"request_id", c.GetString(ctxKeyRequestID),
			"panic", fmt.Sprint(rec))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	})
}
