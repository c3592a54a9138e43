package main

import (
	"anonrelay/backend/internal/api/handler"
	"anonrelay/backend/internal/config"
	"anonrelay/backend/internal/ledger"
	"anonrelay/backend/internal/models"
	"anonrelay/backend/internal/storage"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

const usage = `Usage: admin <command> [args]

Commands:
  export [file]                 write the log to file (default anonymous_log.txt)
  clear                         delete every log entry and reply record
  maintenance on|off|status     switch or show maintenance mode
  usage <participant_id>        show how many messages a participant sent
  token <operator_id> [hours]   issue an API token (default 24 hours)

With STORE_DRIVER=pebble the bot must be stopped first.`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	command, args := os.Args[1], os.Args[2:]
	if command == "token" {
		if err := issueToken(cfg, args); err != nil {
			log.Fatalf("Error issuing token: %v", err)
		}
		return
	}

	store, err := storage.Open(cfg)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	l := ledger.New(store)

	switch command {
	case "export":
		path := ledger.ExportFileName
		if len(args) > 0 {
			path = args[0]
		}
		err = exportLog(ctx, l, path)
	case "clear":
		err = l.Clear(ctx)
		if err == nil {
			fmt.Println("Log cleared.")
		}
	case "maintenance":
		err = maintenance(ctx, store, args)
	case "usage":
		err = showUsage(ctx, l, args)
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
	if err != nil {
		store.Close()
		log.Fatalf("Error running %s: %v", command, err)
	}
}

func exportLog(ctx context.Context, l *ledger.Ledger, path string) error {
	data, err := l.Export(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		fmt.Println("The log is empty.")
		return nil
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	fmt.Printf("Log written to %s.\n", path)
	return nil
}

// maintenance writes the persisted flag directly; a running bot picks it
// up on its next start.
func maintenance(ctx context.Context, s storage.Storage, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: admin maintenance on|off|status")
	}
	switch args[0] {
	case "on", "off":
		if err := s.PutSetting(ctx, models.SettingMaintenance, strconv.FormatBool(args[0] == "on")); err != nil {
			return err
		}
		fmt.Printf("Maintenance mode %s.\n", args[0])
	case "status":
		v, err := s.GetSetting(ctx, models.SettingMaintenance)
		if errors.Is(err, storage.ErrNotFound) {
			fmt.Println("Maintenance mode never set.")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("Maintenance mode: %s\n", v)
	default:
		return fmt.Errorf("unknown maintenance argument %q", args[0])
	}
	return nil
}

func showUsage(ctx context.Context, l *ledger.Ledger, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: admin usage <participant_id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid participant id: %w", err)
	}
	count, err := l.Usage(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("Participant %d sent %d message(s).\n", id, count)
	return nil
}

func issueToken(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: admin token <operator_id> [hours]")
	}
	auth := handler.NewAuth(cfg.JWTSecret)
	if auth == nil {
		return errors.New("JWT_SECRET is not set")
	}
	operatorID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid operator id: %w", err)
	}
	hours := 24
	if len(args) > 1 {
		if hours, err = strconv.Atoi(args[1]); err != nil || hours <= 0 {
			return fmt.Errorf("invalid duration %q", args[1])
		}
	}
	token, err := auth.GenerateToken(operatorID, time.Duration(hours)*time.Hour)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
