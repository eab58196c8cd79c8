package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/michaelrobgrove/mb-digital-ministry/internal/app"
	"github.com/michaelrobgrove/mb-digital-ministry/internal/config"
	log "github.com/sirupsen/logrus"
)

func main() {
	var appCfg config.AppConfig
	var migrateOnly bool
	flag.StringVar(&appCfg.ConfigPath, "config", config.DefaultConfigPath, "path to the YAML config file")
	flag.StringVar(&appCfg.EnvFile, "env", ".env", "path to a dotenv file")
	flag.BoolVar(&migrateOnly, "migrate", false, "run SQL store migrations and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if migrateOnly {
		if err := app.Migrate(ctx, appCfg); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		log.Info("migrations applied")
		return
	}

	if err := app.RunServer(ctx, appCfg); err != nil {
		log.Fatalf("server: %v", err)
	}
}
