package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/icodeforyou/doctypes-dashboard/chartview"
	"github.com/icodeforyou/doctypes-dashboard/config"
	"github.com/icodeforyou/doctypes-dashboard/database"
	"github.com/icodeforyou/doctypes-dashboard/doctypes"
	"github.com/icodeforyou/doctypes-dashboard/logging"
	"github.com/icodeforyou/doctypes-dashboard/publish"
	"github.com/icodeforyou/doctypes-dashboard/task"
	"github.com/icodeforyou/doctypes-dashboard/www"
	"github.com/lmittmann/tint"
)

var Version = "?.?.?"

func main() {
	defer func() {
		if err := recover(); err != nil {
			exitWithError(slog.Default(), fmt.Errorf("application panicked: %v", err))
		} else {
			slog.Default().Info("application is shutting down...")
		}
	}()

	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cnfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consoleHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      cnfg.Logging.GetConsoleLevel(),
		TimeFormat: time.RFC3339,
	})
	slog.SetDefault(slog.New(consoleHandler))
	slog.Default().Debug("doctypes dashboard is starting...", slog.String("version", Version))

	db, err := database.New(ctx, cnfg.Database.Path, database.WithBackupDir(cnfg.Database.BackupDir))
	if err != nil {
		panic(fmt.Sprintf("failed to connect to database: %v", err))
	}
	defer db.Close()

	logger := slog.New(logging.NewMultiHandler(
		consoleHandler,
		logging.NewSQLiteHandler(db, cnfg.Logging.GetDbLevel(), cnfg.Logging.GetDbAttrsFormat())))
	slog.SetDefault(logger)

	// Now we can use the logger to log database operations into the database itself
	db.SetLogger(logger.With("module", "database"))

	var onLoaded []func(chartview.Series)
	if cnfg.Mqtt.Enabled() {
		publisher := publish.New(
			cnfg.Mqtt.Host,
			cnfg.Mqtt.GetPort(),
			cnfg.Mqtt.Username,
			cnfg.Mqtt.Password,
			cnfg.Mqtt.GetTopic())
		if err := publisher.Connect(); err != nil {
			logger.Error("mqtt connection error, publishing disabled", slog.Any("error", err))
		} else {
			defer publisher.Disconnect()
			onLoaded = append(onLoaded, publisher.OnLoaded)
		}
	}

	tasks := task.NewTasks(db, cnfg)
	if isDevMode() {
		logger.Info("dev mode, skipping task scheduling")
	} else {
		if err := tasks.Run(); err != nil {
			panic(fmt.Sprintf("failed to schedule tasks: %v", err))
		}
		defer tasks.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("main context done")
		case sig := <-sigCh:
			logger.Info("received signal", slog.Any("signal", sig))
			cancel()
		}
	}()

	fetcher := doctypes.New(cnfg.Upstream.GetURL(), cnfg.Upstream.Timeout)
	sysInfo := www.SysInfo{
		Version:      Version,
		UpstreamURL:  fetcher.URL(),
		DatabasePath: cnfg.Database.Path,
		StartedAt:    time.Now(),
	}
	if cnfg.Mqtt.Enabled() {
		sysInfo.MqttTopic = cnfg.Mqtt.GetTopic()
	}

	server, err := www.StartServer(ctx, db, fetcher, cnfg.Api, sysInfo, onLoaded...)
	if err != nil {
		panic(fmt.Sprintf("failed to start server: %v", err))
	}
	server.Run(ctx)
}

func isDevMode() bool {
	return strings.EqualFold(os.Getenv("APP_ENV"), "development")
}

func exitWithError(logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("application shutting down with error", slog.Any("error", err))
	}
	time.Sleep(2 * time.Second)
	os.Exit(1)
}
