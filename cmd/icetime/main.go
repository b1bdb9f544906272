package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"icetime/internal/config"
	"icetime/internal/directory"
	"icetime/internal/export"
	"icetime/internal/fetch"
	appLog "icetime/internal/log"
	"icetime/internal/pipeline"
	"icetime/internal/source"
	"icetime/internal/store"
	"icetime/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	once       bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		// Reference data is the one fatal dependency: without it there is
		// nothing to aggregate.
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("icetime starting",
		"listen", conf.Listen,
		"refresh", conf.RefreshCron,
		"horizon_days", conf.HorizonDays,
		"facilities", len(conf.Facilities),
		"sources", len(conf.Sources),
		"once", flags.once,
	)

	dir, err := directory.New(conf.Facilities)
	if err != nil {
		appLog.Error("failed to build facility directory", err)
		os.Exit(1)
	}

	fetcher := fetch.NewFetcher(conf.CacheDir, source.DefaultFetchDelay)
	pipe, err := pipeline.New(conf, dir, fetcher)
	if err != nil {
		appLog.Error("failed to build pipeline", err)
		os.Exit(1)
	}

	var st *store.Store
	if conf.StorePath != "" {
		st, err = store.Open(conf.StorePath)
		if err != nil {
			appLog.Error("failed to open session store", err, "path", conf.StorePath)
			os.Exit(1)
		}
		defer st.Close()
	}

	server := web.NewServer(dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	refresh := func() {
		sessions, stats, err := pipe.Run(ctx)
		if err != nil {
			appLog.Error("refresh run failed", err)
			return
		}
		server.Publish(stats.RunID, sessions)

		if conf.OutputJSON != "" {
			if err := store.WriteJSON(conf.OutputJSON, sessions); err != nil {
				appLog.Error("failed to write sessions JSON", err, "path", conf.OutputJSON)
			}
		}
		if conf.OutputICS != "" {
			if err := export.WriteICS(conf.OutputICS, sessions); err != nil {
				appLog.Error("failed to write sessions ICS", err, "path", conf.OutputICS)
			}
		}
		if st != nil {
			if err := st.ReplaceAll(ctx, stats.RunID, sessions); err != nil {
				appLog.Error("failed to store sessions", err, "path", conf.StorePath)
			}
		}
	}

	refresh()
	if flags.once {
		appLog.Info("single run complete, exiting")
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(conf.RefreshCron, refresh); err != nil {
		appLog.Error("invalid refresh cron expression", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	httpServer := &http.Server{Addr: conf.Listen, Handler: server.Handler()}
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Error("HTTP server failed", err)
			cancel()
		}
	}()

	<-ctx.Done()
	_ = httpServer.Shutdown(context.Background())
	appLog.Info("icetime exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig
	flag.StringVar(&cfg.configPath, "config", "/etc/icetime/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one refresh cycle and exit")
	flag.Parse()
	return cfg
}
