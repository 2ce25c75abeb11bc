package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/cesink/internal/sink"
	"github.com/angelmondragon/cesink/pkg/config"
	"github.com/angelmondragon/cesink/pkg/db"
	"github.com/angelmondragon/cesink/pkg/logger"
	"github.com/angelmondragon/cesink/pkg/migrate"
)

func main() {
	ctx := context.Background()
	// bootstrap logger early (then re-init after config load)
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "command: up|print|status")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	target, err := sink.TargetFromConfig(cfg.DB, cfg.Sink)
	requireResource(ctx, logg, "sink target", err)

	ctx = logg.WithFields(context.Background(), map[string]any{
		"cmd":   *cmd,
		"table": target.Qualified(),
		"shape": target.Shape.Name(),
	})

	// print needs no database
	if *cmd == "print" {
		fmt.Println(sink.CreateTableSQL(target))
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	switch *cmd {
	case "up":
		if err := migrate.Up(ctx, dbClient, target, logg); err != nil {
			fmt.Fprintf(os.Stderr, "goose up failed: %v\n", err)
			os.Exit(1)
		}

	case "status":
		exists, err := migrate.Status(ctx, dbClient, target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "status failed: %v\n", err)
			os.Exit(1)
		}
		if exists {
			fmt.Printf("%s exists\n", target.Qualified())
		} else {
			fmt.Printf("%s is missing\n", target.Qualified())
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
