package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/mgcaisse/caisse/config"
	"github.com/mgcaisse/caisse/internal/app"
	"github.com/mgcaisse/caisse/internal/webapi"
)

var (
	cfile  = flag.String("c", "caisse.yml", "config file")
	initdb = flag.Bool("initdb", false, "drop and recreate all tables")
)

func main() {
	flag.Parse()

	cfg := config.LoadConfig(*cfile)
	if err := os.MkdirAll(cfg.System.Workdir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "workdir init failed: %v\n", err)
		os.Exit(1)
	}

	application := app.NewApplication(cfg)
	if err := application.Init(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "application init failed: %v\n", err)
		os.Exit(1)
	}
	defer application.Release()

	if *initdb {
		application.InitDb()
		zap.S().Info("database recreated")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	application.StartBackgroundServices(ctx)

	// Local API consumed by the UI shell
	api := webapi.NewServer(
		application.Store(),
		application.Auth(),
		application.Sales(),
		application.State(),
		application.SyncService(),
		application.Monitor(),
		cfg.Auth.JwtSecret,
	)
	go func() {
		if err := api.Start(cfg.System.ApiListen); err != nil {
			zap.S().Errorf("api server stopped: %v", err)
		}
	}()

	// Cache gateway in front of the shell origin
	ge := echo.New()
	ge.HideBanner = true
	ge.Use(middleware.Recover())
	application.Gateway().Register(ge)
	go func() {
		if err := ge.Start(cfg.Gateway.Listen); err != nil {
			zap.S().Errorf("gateway stopped: %v", err)
		}
	}()

	zap.S().Infof("caisse started, api %s gateway %s", cfg.System.ApiListen, cfg.Gateway.Listen)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	zap.S().Info("shutting down")
	_ = api.Echo().Shutdown(ctx)
	_ = ge.Shutdown(ctx)
}
