package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bryanwahyu/automaton-scan-gate/internal/config"
	"github.com/bryanwahyu/automaton-scan-gate/internal/logger"
)

const usage = `usage: scan-gate [run|serve|consume] [flags]

  run      dispatch a scan for the current GitHub Actions job and gate on it (default)
  serve    HTTP API accepting trigger contexts
  consume  SQS worker handling trigger contexts
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	mode, rest := subcommand(args)

	flags := pflag.NewFlagSet("scan-gate", pflag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	config.RegisterFlags(flags)
	if err := flags.Parse(rest); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	// path config yaml: --config, lalu CONFIG_PATH
	path, _ := flags.GetString("config")
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(path, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		return 1
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Errorw("invalid configuration", "error", err)
		if mode == "run" {
			fmt.Fprintf(os.Stdout, "::error::%s\n", err)
		}
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := wire(ctx, cfg, log)
	if err != nil {
		log.Errorw("startup failed", "error", err)
		return 1
	}
	defer app.Close()

	switch mode {
	case "serve":
		return serve(ctx, cfg, app)
	case "consume":
		return consume(ctx, cfg, app)
	default:
		return runAction(ctx, app, os.Getenv, os.Stdout)
	}
}

// subcommand splits off the optional leading mode.
func subcommand(args []string) (string, []string) {
	if len(args) > 0 {
		switch args[0] {
		case "run", "serve", "consume":
			return args[0], args[1:]
		}
	}
	return "run", args
}
