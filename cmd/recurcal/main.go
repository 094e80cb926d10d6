package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"recurcal/internal/config"
	"recurcal/internal/export"
	appLog "recurcal/internal/log"
	"recurcal/internal/model"
	"recurcal/internal/web"
)

const version = "0.1.0"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	rule       string
	month      string
	list       bool
	verify     string
}

func main() {
	os.Exit(run())
}

func run() int {
	flags := parseFlags()
	defer appLog.Sync()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		return 1
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	lvl, err := appLog.ParseLevel(conf.LogLevel)
	if err != nil {
		appLog.Warn("invalid log level; using info", "log_level", conf.LogLevel)
	}
	appLog.SetLevel(lvl)

	events, err := conf.Events()
	if err != nil {
		appLog.Error("invalid rule in config", err, "config_path", flags.configPath)
		return 1
	}

	appLog.Info("recurcal starting",
		"version", version,
		"listen", conf.Listen,
		"week_start", conf.WeekStart,
		"rules", len(events),
		"export_dir", conf.Export.Dir,
		"export_schedule", conf.Export.Schedule,
		"once", flags.once,
	)

	if flags.rule != "" {
		return runQuery(conf, events, flags)
	}
	if flags.verify != "" {
		return runVerify(events, flags.verify)
	}
	if flags.once {
		return runExportOnce(conf, events)
	}
	return serve(conf, events)
}

// runQuery prints one rule's month grid or occurrence list to stdout.
func runQuery(conf *config.Config, events []model.Event, flags flagConfig) int {
	ev, ok := findEvent(events, flags.rule)
	if !ok {
		appLog.Error("unknown rule", fmt.Errorf("no rule with id %q", flags.rule))
		return 2
	}

	var err error
	switch {
	case flags.list:
		err = printOccurrences(os.Stdout, ev)
	default:
		err = printMonth(os.Stdout, ev, flags.month, conf.FirstWeekday())
	}
	if err != nil {
		appLog.Error("query failed", err, "rule", ev.ID)
		return 1
	}
	return 0
}

// runVerify checks an exported .ics file against the configured rules.
func runVerify(events []model.Event, path string) int {
	body, err := os.ReadFile(path)
	if err != nil {
		appLog.Error("failed to read calendar", err, "path", path)
		return 1
	}
	if err := verifyICS(os.Stdout, body, events); err != nil {
		appLog.Error("calendar does not match rules", err, "path", path)
		return 1
	}
	return 0
}

func runExportOnce(conf *config.Config, events []model.Event) int {
	if conf.Export.Dir == "" {
		appLog.Error("export requested but not configured", fmt.Errorf("export.dir is empty"))
		return 1
	}
	if _, err := export.NewJob(conf.Export.Dir, events).Run(context.Background()); err != nil {
		return 1
	}
	return 0
}

// serve runs the HTTP API and, when export.dir is set, the export
// scheduler until SIGINT/SIGTERM.
func serve(conf *config.Config, events []model.Event) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := web.NewServer(conf)
	if err != nil {
		appLog.Error("failed to build HTTP server", err)
		return 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })

	if conf.Export.Dir != "" {
		sched, err := export.NewScheduler(conf.Export.Schedule, export.NewJob(conf.Export.Dir, events))
		if err != nil {
			appLog.Error("invalid export schedule", err)
			stop()
			_ = g.Wait()
			return 1
		}
		g.Go(func() error { return sched.Run(gctx) })
	}

	err = g.Wait()
	if err != nil {
		appLog.Error("recurcal stopped with error", err)
		return 1
	}
	appLog.Info("recurcal exiting")
	return 0
}

func findEvent(events []model.Event, id string) (model.Event, bool) {
	for _, ev := range events {
		if ev.ID == id {
			return ev, true
		}
	}
	return model.Event{}, false
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/recurcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run the .ics export once and exit")
	flag.StringVar(&cfg.rule, "rule", "", "Print the month grid (or, with -list, the occurrences) of this rule and exit")
	flag.StringVar(&cfg.month, "month", "", "Month to print as YYYY-MM (default: month of the rule's start)")
	flag.BoolVar(&cfg.list, "list", false, "With -rule, list occurrences instead of a month grid")
	flag.StringVar(&cfg.verify, "verify", "", "Check an exported .ics file against the configured rules and exit")

	flag.Parse()

	return cfg
}
