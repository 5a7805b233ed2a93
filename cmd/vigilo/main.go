package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/vigilohq/agent/internal/confcli"
	"github.com/vigilohq/agent/internal/confstore"
	"github.com/vigilohq/agent/internal/enroll"
	"github.com/vigilohq/agent/internal/logging"
	"github.com/vigilohq/agent/internal/monitorcli"
	"github.com/vigilohq/agent/internal/probe"
	"github.com/vigilohq/agent/internal/report"
	"github.com/vigilohq/agent/internal/settings"
	"github.com/vigilohq/agent/internal/webhook"
)

const defaultProbeEnvPath = "/etc/vigilo/config.settings"

func main() {
	ctx := context.Background()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "conf":
		err = confcli.Run(ctx, os.Args[2:], confcli.Dependencies{})
	case "probe":
		err = runProbe(ctx, os.Args[2:])
	case "report":
		err = runReport(ctx, os.Args[2:])
	case "register":
		err = enroll.Run(ctx, os.Args[2:], enroll.Dependencies{})
	case "monitor":
		err = monitorcli.Run(ctx, os.Args[2:], monitorcli.Dependencies{})
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "command %s failed: %v\n", cmd, err)
		os.Exit(1)
	}
}

func runProbe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	settingsPath := fs.String("settings", settings.DefaultSettingsPath, "Path to agent settings file")
	kind := fs.String("kind", "", "Probe kind (disk|cpu|memory|service|process|container)")
	monitorID := fs.String("monitor-id", "", "Monitor to report the value for")
	target := fs.String("target", "", "Probe target (mount path, unit, process, or container)")
	envPath := fs.String("env", defaultProbeEnvPath, "Path to the shared probe settings file")
	quiet := fs.Bool("quiet", false, "Suppress echo of log lines")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := settings.Load(ctx, *settingsPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	logger, err := logging.New(
		logging.Config{Streams: cfg.Logging.Streams, Quiet: cfg.Logging.Quiet || *quiet},
		logging.Dependencies{},
	)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	collector := probe.NewCollector(probe.WithSampleInterval(cfg.Probes.SampleInterval))
	result, err := collector.Collect(ctx, probe.Request{
		MonitorID: *monitorID,
		Kind:      probe.Kind(*kind),
		Target:    *target,
	})
	if err != nil {
		logger.Errorf("probe %s failed: %v", *kind, err)
		return err
	}

	fmt.Printf("%s\n", formatValue(result.Value))

	probeEnv, err := settings.LoadProbeEnv(*envPath)
	if err != nil {
		return err
	}
	if probeEnv.LogOutput {
		logger.Infof("probe %s for monitor %s collected %s", result.Kind, result.MonitorID, formatValue(result.Value))
	}

	if cfg.Dashboard.URL == "" {
		logger.Warnf("no dashboard URL configured; value for monitor %s not reported", result.MonitorID)
		return nil
	}

	reporter, err := webhook.NewReporter(
		webhook.Config{DashboardURL: cfg.Dashboard.URL, RatePerSecond: cfg.Probes.RatePerSecond},
		webhook.Dependencies{HTTPClient: &http.Client{Timeout: 10 * time.Second}, Logger: logger},
	)
	if err != nil {
		return fmt.Errorf("init webhook reporter: %w", err)
	}

	// Reporting is best effort: a probe run that collected a value exits
	// zero even when the dashboard is unreachable.
	if err := reporter.Report(ctx, result.MonitorID, result.Value); err != nil {
		logger.Errorf("report monitor %s: %v", result.MonitorID, err)
	}
	return nil
}

func runReport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	settingsPath := fs.String("settings", settings.DefaultSettingsPath, "Path to agent settings file")
	confPath := fs.String("conf", "", "Override for the configuration document path")
	concurrency := fs.Int("concurrency", 0, "Number of probes collected in parallel")
	quiet := fs.Bool("quiet", false, "Suppress echo of log lines")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := settings.Load(ctx, *settingsPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if *confPath != "" {
		cfg.Conf.Path = *confPath
	}
	if cfg.Dashboard.URL == "" {
		return fmt.Errorf("dashboard URL must be configured for report runs")
	}

	logger, err := logging.New(
		logging.Config{Streams: cfg.Logging.Streams, Quiet: cfg.Logging.Quiet || *quiet},
		logging.Dependencies{},
	)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	store := confstore.New(cfg.Conf.Path, confstore.Dependencies{Logger: logger})
	collector := probe.NewCollector(probe.WithSampleInterval(cfg.Probes.SampleInterval))
	reporter, err := webhook.NewReporter(
		webhook.Config{DashboardURL: cfg.Dashboard.URL, RatePerSecond: cfg.Probes.RatePerSecond},
		webhook.Dependencies{HTTPClient: &http.Client{Timeout: 10 * time.Second}, Logger: logger},
	)
	if err != nil {
		return fmt.Errorf("init webhook reporter: %w", err)
	}

	runner, err := report.NewRunner(
		report.Config{Concurrency: *concurrency},
		report.Dependencies{
			Store:   store,
			Collect: collector.Collect,
			Report:  reporter.Report,
			Logger:  logger,
		},
	)
	if err != nil {
		return fmt.Errorf("init report runner: %w", err)
	}

	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Println(summaryLine(summary))
	return nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func summaryLine(s report.Summary) string {
	return fmt.Sprintf("reported %d of %d monitors (%d failed, %d skipped)",
		s.Reported, s.Total, s.Failed, s.Skipped)
}

func printUsage() {
	fmt.Println("Vigilo Agent CLI")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  vigilo conf <create|validate|get|set|unset|exists|find|add-record|remove-record|set-field|count> --file path [flags]")
	fmt.Println("  vigilo probe --kind kind --monitor-id id [--target t] [--settings path] [--env path] [--quiet]")
	fmt.Println("  vigilo report [--settings path] [--conf path] [--concurrency n] [--quiet]")
	fmt.Println("  vigilo register [--name host] [--parent-id id] [--settings path] [--conf path]")
	fmt.Println("  vigilo monitor <add|remove|list> [--settings path] [--conf path] [flags]")
}
