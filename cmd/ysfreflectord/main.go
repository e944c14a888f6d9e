// Command ysfreflectord is the YSF reflector daemon. Grounded on the
// original reflector's argument handling (original_source/YSFReflector/
// YSFReflector.cpp main()) for the CLI surface, and on the teacher's
// main.go for how a Go daemon in this pack wires config, logging and
// optional collaborators together before entering its run loop.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwsl/ysfreflector/internal/blocklist"
	"github.com/cwsl/ysfreflector/internal/config"
	"github.com/cwsl/ysfreflector/internal/geo"
	"github.com/cwsl/ysfreflector/internal/metrics"
	"github.com/cwsl/ysfreflector/internal/notify"
	"github.com/cwsl/ysfreflector/internal/reflector"
	"github.com/cwsl/ysfreflector/internal/status"
	"github.com/cwsl/ysfreflector/internal/transport"
	"github.com/cwsl/ysfreflector/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run implements the CLI surface of spec.md §6: "program [-v|--version]
// [ini-path]" — a single positional argument overrides the default
// configuration path; any other flag is an error.
func run(args []string) int {
	cfgPath := config.DefaultPath
	for _, arg := range args {
		switch {
		case arg == "-v" || arg == "--version":
			fmt.Println(version.Banner())
			return 0
		case len(arg) > 0 && arg[0] == '-':
			fmt.Fprintf(os.Stderr, "Usage: %s [-v|--version] [config-path]\n", version.Name)
			return 1
		default:
			cfgPath = arg
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", version.Name, err)
		return 1
	}

	logger, closeLog, err := newLogger(cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: log init: %v\n", version.Name, err)
		return 1
	}
	defer closeLog()

	ep, err := transport.Open(cfg.Network.Port)
	if err != nil {
		logger.Printf("fatal: %v", err)
		return 1
	}
	defer ep.Close()

	bl, err := blocklist.New(cfg.Blocklist.Path, cfg.Blocklist.ReloadInterval)
	if err != nil {
		logger.Printf("fatal: %v", err)
		return 1
	}

	opts := reflector.Options{Debug: cfg.Reflector.Debug}

	if cfg.Metrics.Enabled {
		m := metrics.New()
		if err := m.Serve(cfg.Metrics.Listen); err != nil {
			logger.Printf("metrics: %v", err)
		} else {
			opts.Metrics = m
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := m.Shutdown(ctx); err != nil {
					logger.Printf("metrics: shutdown: %v", err)
				}
			}()
		}
	}

	if cfg.Status.Enabled {
		d := status.New()
		if err := d.Serve(cfg.Status.Listen); err != nil {
			logger.Printf("status: %v", err)
		} else {
			opts.Dashboard = d
			defer d.Close()
		}
	}

	if cfg.MQTT.Enabled {
		n, err := notify.New(cfg.MQTT.Broker, cfg.MQTT.Username, cfg.MQTT.Password, cfg.MQTT.TopicPrefix)
		if err != nil {
			logger.Printf("notify: %v", err)
		} else {
			opts.Notifier = n
			defer n.Close()
		}
	}

	if cfg.GeoIP.DatabasePath != "" {
		g, err := geo.Open(cfg.GeoIP.DatabasePath)
		if err != nil {
			logger.Printf("geo: %v", err)
		} else {
			opts.Geo = g
			defer g.Close()
		}
	}

	logger.Printf("%s is starting on port %d", version.Banner(), cfg.Network.Port)

	loop := reflector.New(ep, cfg.Reflector.Callsign, bl, logger, opts)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	loop.Run(ctx)
	return 0
}

func newLogger(path string) (*log.Logger, func(), error) {
	if path == "" {
		return log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return log.New(f, "", log.LstdFlags|log.Lmicroseconds), func() { f.Close() }, nil
}
