package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"edgemaint/internal/backend"
	"edgemaint/internal/config"
	appLog "edgemaint/internal/log"
	"edgemaint/internal/maintenance"
	"edgemaint/internal/model"
	"edgemaint/internal/preview"
	"edgemaint/internal/schedule"
	"edgemaint/internal/tzdb"
	"edgemaint/internal/web"
)

const version = "0.1.0"

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// serve is the default command.
	if len(args) == 0 || (strings.HasPrefix(args[0], "-") && args[0] != "-h" && args[0] != "--help" && args[0] != "--version") {
		return runServe(args)
	}
	switch args[0] {
	case "serve":
		return runServe(args[1:])
	case "convert":
		return runConvert(args[1:], os.Stdout)
	case "localize":
		return runLocalize(args[1:], os.Stdin, os.Stdout)
	case "version", "--version":
		fmt.Println("edgemaint", version)
		return nil
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `edgemaint keeps maintenance windows in the zone their operators think in
and stores them as UTC schedules.

Usage:
  edgemaint [serve]  [--config path] [--listen addr]
  edgemaint convert  --timezone zone (--time HH:MM ... | --start time ...)
  edgemaint localize --timezone zone [--file records.json]
  edgemaint version
`)
}

func runServe(args []string) error {
	var configPath, listen string
	flagSet := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "/etc/edgemaint/config.yaml", "path to config file")
	flagSet.StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	appLog.Info("edgemaint starting", "version", version)

	conf, err := config.Load(configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", configPath)
		return err
	}
	if listen != "" {
		conf.Listen = listen
	}
	level, err := appLog.ParseLevel(conf.LogLevel)
	if err != nil {
		return err
	}
	appLog.SetLevel(level)

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"backend", conf.Backend.URL,
		"backend_timeout", conf.Backend.Timeout,
		"retry_attempts", conf.Backend.RetryAttempts,
		"zone_cache_size", conf.ZoneCacheSize,
	)

	tz := tzdb.New(conf.ZoneCacheSize)
	if _, err := tz.Location(conf.Timezone); err != nil {
		return fmt.Errorf("config timezone: %w", err)
	}
	client := backend.New(backend.Options{
		URL:      conf.Backend.URL,
		Timeout:  conf.Backend.Timeout,
		Attempts: conf.Backend.RetryAttempts,
	})
	svc := maintenance.NewService(client, tz)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := web.StartServer(ctx, conf, svc, tz); err != nil {
		return err
	}
	appLog.Info("edgemaint exiting")
	return nil
}

// runConvert converts one form given on the command line and prints the
// records the store would receive.
func runConvert(args []string, out io.Writer) error {
	var (
		f        maintenance.Form
		duration time.Duration
	)
	flagSet := pflag.NewFlagSet("convert", pflag.ContinueOnError)
	flagSet.StringVar(&f.Timezone, "timezone", "", "IANA zone the values are in")
	flagSet.StringVar(&f.Name, "name", "cli", "window name")
	flagSet.StringVar(&f.Time, "time", "", "recurring start time, HH:MM")
	flagSet.StringVar(&f.Cadence, "cadence", "weekly", "weekly or monthly")
	flagSet.StringVar(&f.Days, "days", "*", "weekdays (0=Sunday) or days of month, comma separated")
	flagSet.StringVar(&f.Months, "months", "*", "months, comma separated")
	flagSet.DurationVar(&duration, "duration", 0, "window length")
	flagSet.StringVar(&f.Start, "start", "", "one-time start, 2006-01-02T15:04")
	flagSet.StringVar(&f.End, "end", "", "one-time end; omit for open-ended")
	flagSet.BoolVar(&f.StartRepeated, "start-repeated", false, "start is the second reading of a repeated hour")
	flagSet.BoolVar(&f.EndRepeated, "end-repeated", false, "end is the second reading of a repeated hour")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	f.Repeating = f.Start == ""
	f.OpenEnded = !f.Repeating && f.End == ""
	f.Duration = int64(duration / time.Second)

	svc := maintenance.NewService(nil, tzdb.New(0))
	records, split, err := svc.Records(f)
	if err != nil {
		return err
	}
	if split {
		color.New(color.FgYellow).Fprintln(out, "selection crosses a month boundary in UTC; it is stored as two records")
	}
	for _, rec := range records {
		sch, err := rec.Schedule()
		if err != nil {
			return err
		}
		if r, ok := sch.(schedule.RecurringRule); ok {
			color.New(color.FgCyan).Fprintf(out, "cron (UTC): %s", preview.Expression(r))
			if r.Spillover != schedule.NoSpillover {
				color.New(color.FgHiBlack).Fprintf(out, "  [%s]", r.Spillover)
			}
			fmt.Fprintln(out)
		}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// runLocalize reads stored records as JSON and prints them in a zone.
func runLocalize(args []string, in io.Reader, out io.Writer) error {
	var zone, file string
	flagSet := pflag.NewFlagSet("localize", pflag.ContinueOnError)
	flagSet.StringVarP(&zone, "timezone", "z", "", "IANA zone to show the records in")
	flagSet.StringVarP(&file, "file", "f", "-", "JSON array of records; - reads stdin")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if file != "-" {
		fh, err := os.Open(file)
		if err != nil {
			return err
		}
		defer fh.Close()
		in = fh
	}

	var records []model.Maintenance
	if err := json.NewDecoder(in).Decode(&records); err != nil {
		return fmt.Errorf("reading records: %w", err)
	}

	svc := maintenance.NewService(nil, tzdb.New(0))
	loaded, err := svc.Localize(records, zone)
	if err != nil {
		return err
	}
	d := svc.Describe(loaded, zone)

	label := color.New(color.Bold)
	line := func(k, v string) {
		if v == "" {
			return
		}
		label.Fprintf(out, "%-9s", k)
		fmt.Fprintln(out, v)
	}
	line("Zone", d.Zone)
	line("Time", d.Time)
	line("Days", d.Days)
	line("Months", d.Months)
	line("Start", d.Start)
	line("End", d.End)
	line("Duration", d.Duration)
	return nil
}
