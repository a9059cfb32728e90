package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/glosspoint/glosspoint/config"
	"github.com/glosspoint/glosspoint/internal/adminapi"
	"github.com/glosspoint/glosspoint/internal/app"
	"github.com/glosspoint/glosspoint/internal/webserver"
)

var (
	configFile = flag.String("c", "/etc/glosspoint.yml", "config file path")
	dropTables = flag.Bool("initdb", false, "drop and recreate every table, then exit")
	showVer    = flag.Bool("v", false, "print version and exit")
)

var version = "dev"

func main() {
	flag.Parse()
	if *showVer {
		fmt.Printf("glosspointd %s\n", version)
		return
	}

	cfg := config.LoadConfig(*configFile)
	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *dropTables {
		application.DropAll()
		if err := application.MigrateDB(true); err != nil {
			zap.S().Fatalf("initdb failed: %s", err)
		}
		zap.L().Info("database reinitialized")
		return
	}

	webserver.Init(cfg)
	adminapi.Register(application)

	errCh := make(chan error, 1)
	go func() {
		errCh <- webserver.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			zap.S().Errorf("web server stopped: %s", err)
		}
	case sig := <-sigCh:
		zap.L().Info("shutting down", zap.String("signal", sig.String()))
		webserver.Shutdown()
	}
}
