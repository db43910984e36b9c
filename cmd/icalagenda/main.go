package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"icalagenda/internal/config"
	appLog "icalagenda/internal/log"
)

var version = "dev"

type CLI struct {
	Config          string   `help:"Path to YAML config file" type:"path" short:"c"`
	Verbose         bool     `help:"Debug logging" short:"v"`
	Days            int      `help:"Window length in days, left and right of now (-1: config value, default 90)" default:"-1" short:"d"`
	Email           []string `help:"User email address, used to drop declined events" short:"e"`
	Timezone        string   `help:"Rendering timezone (defaults to the local timezone)" short:"t"`
	Location        bool     `help:"Include location in titles"`
	ContinueOnError bool     `help:"Skip documents, events and instances that fail to convert" name:"continue-on-error"`
	PrintTimezones  bool     `help:"Print acceptable timezone names and exit" short:"p" name:"print-timezones"`
	CacheDir        string   `help:"Cache directory for remote calendars" type:"path" name:"cache-dir"`

	Convert struct {
		Sources []string `arg:"" optional:"" help:"Calendar files, - for stdin, or http(s) URLs (default: sources from config)"`
		Output  string   `help:"Agenda file to write, - for stdout" short:"o"`
	} `cmd:"" default:"withargs" help:"Convert calendars once"`

	Watch struct {
		Sources []string `arg:"" optional:"" help:"Calendar files, - for stdin, or http(s) URLs (default: sources from config)"`
		Output  string   `help:"Agenda file to write, - for stdout" short:"o"`
		Refresh string   `help:"Cron schedule for re-conversion" placeholder:"CRON"`
	} `cmd:"" help:"Convert now and again on a cron schedule"`

	Serve struct {
		Sources []string `arg:"" optional:"" help:"Calendar files, - for stdin, or http(s) URLs (default: sources from config)"`
		Listen  string   `help:"HTTP listen address"`
	} `cmd:"" help:"Serve the agenda over HTTP"`

	Version struct{} `cmd:"" help:"Show version"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("icalagenda"),
		kong.Description("Convert iCalendar events into a plain-text agenda"),
		kong.UsageOnError(),
	)

	if cli.Verbose {
		appLog.SetLevel(appLog.LevelDebug)
	}

	if cli.PrintTimezones {
		for _, name := range config.Timezones() {
			fmt.Println(name)
		}
		return
	}

	command := strings.Fields(kctx.Command())[0]
	if command == "version" {
		fmt.Printf("icalagenda %s\n", version)
		return
	}

	cfg, err := cli.settings(command)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", cli.Config)
		os.Exit(3)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch command {
	case "convert":
		err = runConvert(ctx, cfg)
	case "watch":
		err = runWatch(ctx, cfg)
	case "serve":
		err = runServe(ctx, cfg)
	default:
		err = fmt.Errorf("unknown command: %s", kctx.Command())
	}

	if err != nil {
		appLog.Error("icalagenda failed", err, "command", command)
		os.Exit(1)
	}
}

// settings loads the config file and applies command-line overrides.
func (c *CLI) settings(command string) (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}

	if c.Days >= 0 {
		cfg.Days = c.Days
	}
	cfg.Emails = append(cfg.Emails, c.Email...)
	if c.Timezone != "" {
		cfg.Timezone = c.Timezone
	}
	if c.Location {
		cfg.IncludeLocation = true
	}
	if c.ContinueOnError {
		cfg.ContinueOnError = true
	}
	if c.CacheDir != "" {
		cfg.CacheDir = c.CacheDir
	}

	var sources []string
	switch command {
	case "convert":
		sources = c.Convert.Sources
		if c.Convert.Output != "" {
			cfg.Output = c.Convert.Output
		}
	case "watch":
		sources = c.Watch.Sources
		if c.Watch.Output != "" {
			cfg.Output = c.Watch.Output
		}
		if c.Watch.Refresh != "" {
			cfg.Refresh = c.Watch.Refresh
		}
	case "serve":
		sources = c.Serve.Sources
		if c.Serve.Listen != "" {
			cfg.Listen = c.Serve.Listen
		}
	}
	if len(sources) > 0 {
		cfg.Sources = sources
	}

	cfg.Normalize()
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("no calendar sources given")
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}

	appLog.Debug("effective config",
		"days", cfg.Days,
		"emails", len(cfg.Emails),
		"timezone", cfg.Timezone,
		"include_location", cfg.IncludeLocation,
		"continue_on_error", cfg.ContinueOnError,
		"sources", len(cfg.Sources),
		"output", cfg.Output,
	)
	return cfg, nil
}
