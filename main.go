package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shiftwatch/cmd"
	"shiftwatch/database"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			if err := handleMigrationCommand(); err != nil {
				log.Fatal("Migration error: ", err)
			}
			return
		case "collect":
			if err := handleCollectCommand(); err != nil {
				log.Fatal("Collection error: ", err)
			}
			return
		case "aggregate":
			if err := handleAggregateCommand(); err != nil {
				log.Fatal("Aggregation error: ", err)
			}
			return
		case "classify":
			if err := handleClassifyCommand(); err != nil {
				log.Fatal("Classify error: ", err)
			}
			return
		}
	}

	// Daemon operation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	if err := cmd.Run(ctx); err != nil {
		log.Fatal("Application error: ", err)
	}
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: shiftwatch migrate [up|down|status] [args...]")
	}

	databaseURL := os.Getenv("SHIFTWATCH_DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("SHIFTWATCH_DATABASE_URL is not set")
	}

	command := os.Args[2]
	switch command {
	case "up":
		return database.MigrateUp(databaseURL)
	case "down":
		steps := "1"
		if len(os.Args) > 3 {
			steps = os.Args[3]
		}
		return database.MigrateDown(databaseURL, steps)
	case "status":
		return database.MigrateStatus(databaseURL)
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}
}

func handleCollectCommand() error {
	fs := flag.NewFlagSet("collect", flag.ExitOnError)
	force := fs.Bool("force", false, "collect regardless of business hours")
	venues := venueListFlag(fs)
	if err := fs.Parse(os.Args[2:]); err != nil {
		return err
	}

	return cmd.Collect(signalContext(), *force, *venues)
}

func handleAggregateCommand() error {
	fs := flag.NewFlagSet("aggregate", flag.ExitOnError)
	force := fs.Bool("force", false, "recompute even if already aggregated")
	dateStr := fs.String("date", "", "business day to aggregate (YYYY-MM-DD, default: latest closed)")
	venues := venueListFlag(fs)
	if err := fs.Parse(os.Args[2:]); err != nil {
		return err
	}

	var date time.Time
	if *dateStr != "" {
		parsed, err := time.Parse("2006-01-02", *dateStr)
		if err != nil {
			return fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", *dateStr, err)
		}
		date = parsed
	}

	return cmd.Aggregate(signalContext(), date, *force, *venues)
}

func handleClassifyCommand() error {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	shift := fs.String("shift", "", "shift time text as it appears on the roster page")
	avail := fs.String("avail", "", "availability text as it appears on the roster page")
	at := fs.String("at", "", "reference time of day (HH:MM, default: now)")
	if err := fs.Parse(os.Args[2:]); err != nil {
		return err
	}

	return cmd.Classify(*shift, *avail, *at)
}

// venueList collects repeated -venue flags.
type venueList []int64

func (v *venueList) String() string { return fmt.Sprint([]int64(*v)) }

func (v *venueList) Set(s string) error {
	var id int64
	if _, err := fmt.Sscanf(s, "%d", &id); err != nil {
		return fmt.Errorf("invalid venue id %q", s)
	}
	*v = append(*v, id)
	return nil
}

func venueListFlag(fs *flag.FlagSet) *venueList {
	v := &venueList{}
	fs.Var(v, "venue", "limit to a venue id (repeatable)")
	return v
}

// signalContext returns a context cancelled by SIGINT/SIGTERM.
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()
	return ctx
}
