// Command saldo-project runs the projection engine over a JSON export file
// and prints the result to stdout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"saldo/internal/core"
	"saldo/internal/log"
	"saldo/internal/services"
	"saldo/internal/storage/memory"
)

func main() {
	logger := log.New(log.Config{Component: log.ComponentProjection, Output: os.Stderr})
	log.SetDefault(logger)

	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}
	if err := run(context.Background(), os.Args[1], os.Args[2:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			printUsage(os.Stderr)
			os.Exit(1)
		}
		logger.Error("Command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("usage")

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "saldo-project")
	fmt.Fprintln(w, "\nUsage:")
	fmt.Fprintln(w, "  saldo-project <command> -file export.json [options]")
	fmt.Fprintln(w, "\nCommands:")
	fmt.Fprintln(w, "  project      Monthly balance projection (-start, -months, -opening)")
	fmt.Fprintln(w, "  occurrences  What every template produces in -month")
	fmt.Fprintln(w, "  statements   Card statements billed in -month")
	fmt.Fprintln(w, "  reconcile    Reconciliation view of -method's statement in -month")
	fmt.Fprintln(w, "\nRun 'saldo-project <command> -h' for the options of a command.")
}

func run(ctx context.Context, command string, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	file := fs.String("file", "", "JSON export to read (required)")
	start := fs.String("start", "", "first projected month, YYYY-MM (default: current month)")
	months := fs.Int("months", 120, "number of months to project")
	opening := fs.String("opening", "0", "opening balance")
	month := fs.String("month", "", "month, YYYY-MM (default: current month)")
	method := fs.String("method", "", "payment method name")

	switch command {
	case "project", "occurrences", "statements", "reconcile":
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		return errUsage
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("-file is required")
	}
	if _, err := os.Stat(*file); err != nil {
		return fmt.Errorf("read export: %w", err)
	}

	store, err := memory.NewFromFile(*file)
	if err != nil {
		return fmt.Errorf("load %s: %w", *file, err)
	}
	svc := services.NewProjectionService(store, nil, *months)

	targetMonth := svc.CurrentMonth()
	if *month != "" {
		if targetMonth, err = core.ParseYearMonth(*month); err != nil {
			return err
		}
	}

	var out any
	switch command {
	case "project":
		req := services.ProjectionRequest{Months: *months}
		if *start != "" {
			if req.Start, err = core.ParseYearMonth(*start); err != nil {
				return err
			}
		}
		if req.Opening, err = core.ParseMoney(*opening); err != nil {
			return fmt.Errorf("opening: %w", err)
		}
		p, err := svc.Project(ctx, req)
		if err != nil {
			return err
		}
		out = p.Summaries
	case "occurrences":
		if out, err = svc.Occurrences(ctx, targetMonth); err != nil {
			return err
		}
	case "statements":
		if out, err = svc.Statements(ctx, targetMonth); err != nil {
			return err
		}
	case "reconcile":
		if *method == "" {
			return errors.New("-method is required")
		}
		if out, err = svc.Reconciliation(ctx, targetMonth, *method); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
