package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ory/graceful"
	flag "github.com/spf13/pflag"
	"golang.org/x/net/netutil"

	"github.com/nezhahq/sysmon/cmd/collector/controller"
	"github.com/nezhahq/sysmon/model"
	"github.com/nezhahq/sysmon/pkg/ntfy"
	"github.com/nezhahq/sysmon/service/app"
	"github.com/nezhahq/sysmon/service/store"
)

var version = "debug"

type collectorCliParam struct {
	ConfigFile string
	Version    bool
}

func main() {
	var param collectorCliParam
	flag.BoolVarP(&param.Version, "version", "v", false, "show version")
	flag.StringVarP(&param.ConfigFile, "config", "c", "data/config.yaml", "config file path")
	flag.Parse()

	if param.Version {
		fmt.Println(version)
		return
	}

	conf := model.DefaultConfig()
	if err := conf.Read(param.ConfigFile); err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(conf)
	if err := run(conf, logger); err != nil {
		logger.Error("collector exited", "error", err)
		os.Exit(1)
	}
}

func newLogger(conf *model.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(conf.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	if conf.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if conf.Log.JSON {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(conf *model.Config, logger *slog.Logger) error {
	st, err := store.Open(conf.Database.Path, logger, conf.Debug)
	if err != nil {
		return err
	}

	notifier := ntfy.New(conf.Ntfy, logger)
	if !notifier.Enabled() {
		logger.Warn("ntfy notifications disabled")
	}

	a, err := app.New(context.Background(), conf, logger, st, notifier)
	if err != nil {
		st.Close()
		return err
	}
	if err := a.Scheduler.Start(); err != nil {
		a.Close()
		return err
	}

	if !conf.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := graceful.WithDefaults(&http.Server{
		Addr:              conf.ListenAddr(),
		Handler:           controller.ServeWeb(a),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	})

	logger.Info("collector started",
		"version", version,
		"addr", srv.Addr,
		"database", conf.Database.Path,
		"language", conf.Language,
		"clients", a.Clients.Len())

	return graceful.Graceful(func() error {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			return err
		}
		if conf.MaxConnections > 0 {
			ln = netutil.LimitListener(ln, conf.MaxConnections)
		}
		return srv.Serve(ln)
	}, func(ctx context.Context) error {
		logger.Info("shutting down")
		var errs []error
		if err := a.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
		}
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http: %w", err))
		}
		if err := a.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		if err := errors.Join(errs...); err != nil {
			return err
		}
		logger.Info("collector stopped")
		return nil
	})
}
