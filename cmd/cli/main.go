package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"peloton-planner/internal/config"
	"peloton-planner/internal/database"
	"peloton-planner/internal/intervals"
	"peloton-planner/internal/push"
	"peloton-planner/internal/worker"
)

func main() {
	// Disable structured logging for CLI
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors
	})))

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "help" {
		printUsage()
		return
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	client := intervals.NewClient(cfg.IntervalsBaseURL, cfg.IntervalsTimeout(), nil)
	ctx := context.Background()

	var cmdErr error
	switch command {
	case "push":
		cmdErr = handlePush(ctx, db, client)
	case "events":
		cmdErr = handleEvents(ctx, db, client)
	case "sync":
		cmdErr = handleSync(ctx, db, client, cfg)
	case "runs":
		cmdErr = handleRuns(db)
	default:
		fmt.Fprintf(os.Stderr, "Error: Unknown command '%s'\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if cmdErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", cmdErr)
		db.Close()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`peloton-planner CLI - Race calendar management

Usage:
  cli <command> [arguments]

Commands:
  push <race-id>                 Push a race to every enrolled athlete's calendar
  events <athlete-id> <date>     List an athlete's calendar events on a day (YYYY-MM-DD)
  sync <athlete-id>              Pull recent activities and wellness for an athlete
  runs <race-id>                 Show the push history of a race
  help                           Show this help message

Examples:
  cli push 12
  cli events 3 2026-06-01
  cli sync 3

Environment Variables Required:
  PELOTON_INTERNAL_API_KEY       - API key for the REST API
  PELOTON_DATABASE_PATH          - SQLite database (default: ./data.db)
  PELOTON_INTERVALS_BASE_URL     - Intervals.icu API (default: https://intervals.icu/api/v1)`)
}

func argID(pos int, what string) (int64, error) {
	if len(os.Args) <= pos {
		return 0, fmt.Errorf("%s required", what)
	}
	id, err := strconv.ParseInt(os.Args[pos], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %s", what, os.Args[pos])
	}
	return id, nil
}

func describeHTTPError(err error) error {
	var httpErr *intervals.HTTPError
	if errors.As(err, &httpErr) {
		return fmt.Errorf("intervals.icu answered HTTP %d: %s", httpErr.StatusCode, httpErr.Body)
	}
	return err
}

func handlePush(ctx context.Context, db *database.DB, client *intervals.Client) error {
	raceID, err := argID(2, "race ID")
	if err != nil {
		return err
	}

	store := push.NewStore(db)
	pusher := push.NewPusher(store, client, nil, push.WithRecorder(store))

	fmt.Printf("Pushing race %d...\n", raceID)

	report, err := pusher.PushRace(ctx, raceID)
	if err != nil {
		return err
	}

	fmt.Printf("\n✓ Push %s completed for %s\n", report.RunID, report.RaceName)
	fmt.Printf("  Athletes processed: %d\n", report.AthletesProcessed)
	fmt.Printf("  Athletes pushed: %d\n", report.AthletesPushed)
	fmt.Printf("  Athletes skipped (no API key): %d\n", report.AthletesSkipped)
	fmt.Printf("  Events created: %d (%d per athlete)\n", report.EventsCreated, report.EventsPerAthlete)
	fmt.Printf("  Duplicates removed: %d\n", report.DuplicatesRemoved)

	if len(report.Failures) > 0 {
		fmt.Printf("\n%d failure(s):\n", len(report.Failures))
		for _, f := range report.Failures {
			fmt.Printf("  %s (%d): %s\n", f.Name, f.AthleteID, f.Error)
		}
	}
	return nil
}

func handleEvents(ctx context.Context, db *database.DB, client *intervals.Client) error {
	athleteID, err := argID(2, "athlete ID")
	if err != nil {
		return err
	}
	if len(os.Args) < 4 {
		return errors.New("date required (YYYY-MM-DD)")
	}
	date := os.Args[3]
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("invalid date: %s", date)
	}

	athlete, err := db.GetAthlete(athleteID)
	if err != nil {
		return err
	}
	if athlete == nil {
		return fmt.Errorf("athlete %d not found", athleteID)
	}
	if !athlete.HasIntervalsKey() {
		return fmt.Errorf("athlete %d has no Intervals.icu API key", athleteID)
	}

	events, err := client.ListEvents(ctx, *athlete.IntervalsAPIKey, intervals.SelfAthlete, date, date)
	if err != nil {
		return describeHTTPError(err)
	}

	if len(events) == 0 {
		fmt.Printf("No events for %s on %s.\n", athlete.FullName(), date)
		return nil
	}

	fmt.Printf("Found %d event(s) for %s on %s:\n\n", len(events), athlete.FullName(), date)
	for _, e := range events {
		fmt.Printf("ID: %d\n", e.ID)
		fmt.Printf("  Name: %s\n", e.Name)
		fmt.Printf("  Category: %s\n", e.Category)
		fmt.Printf("  Start: %s\n", e.StartDateLocal)
		if e.EndDateLocal != "" {
			fmt.Printf("  End: %s\n", e.EndDateLocal)
		}
		fmt.Println()
	}
	return nil
}

func handleSync(ctx context.Context, db *database.DB, client *intervals.Client, cfg *config.Config) error {
	athleteID, err := argID(2, "athlete ID")
	if err != nil {
		return err
	}

	fmt.Printf("Syncing athlete %d (last %d days)...\n", athleteID, cfg.SyncLookbackDays)

	result, err := worker.NewSyncer(db, client, cfg).SyncAthlete(ctx, athleteID)
	if result != nil {
		fmt.Printf("  Window: %s to %s\n", result.Oldest, result.Newest)
		fmt.Printf("  Activities stored: %d\n", result.Activities)
		fmt.Printf("  Wellness records stored: %d\n", result.Wellness)
		if result.WeightKg != nil {
			fmt.Printf("  Latest weight: %.1f kg\n", *result.WeightKg)
		}
	}
	if err != nil {
		return describeHTTPError(err)
	}

	fmt.Println("✓ Sync completed")
	return nil
}

func handleRuns(db *database.DB) error {
	raceID, err := argID(2, "race ID")
	if err != nil {
		return err
	}

	runs, err := db.ListPushRuns(raceID, 20)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Printf("No pushes recorded for race %d.\n", raceID)
		return nil
	}

	for _, run := range runs {
		fmt.Printf("%s  %s  athletes=%d pushed=%d events=%d failures=%d\n",
			run.ID,
			time.Unix(run.StartedAt, 0).Format(time.RFC3339),
			run.AthletesProcessed,
			run.AthletesPushed,
			run.EventsCreated,
			run.FailureCount)
	}
	return nil
}
