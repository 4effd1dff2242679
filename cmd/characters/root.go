package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Sternrassler/rickmorty-client/internal/config"
	"github.com/Sternrassler/rickmorty-client/pkg/character"
	"github.com/Sternrassler/rickmorty-client/pkg/client"
	"github.com/Sternrassler/rickmorty-client/pkg/i18n"
	"github.com/Sternrassler/rickmorty-client/pkg/logging"
	"github.com/Sternrassler/rickmorty-client/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// options holds the persistent flags.
type options struct {
	apiURL      string
	redisAddr   string
	lang        string
	logLevel    string
	logFile     string
	pretty      bool
	metricsAddr string
	status      string
	species     string
	fresh       bool
}

// app is the state shared by subcommands once PersistentPreRunE has run.
type app struct {
	out     io.Writer
	opts    options
	cfg     config.Config
	bundle  *i18n.Bundle
	locale  string
	filter  character.Filter
	client  *client.Client
	redis   *redis.Client
	logger  zerolog.Logger
	logSink io.Closer

	stopMetrics context.CancelFunc
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out, bundle: i18n.Default()}

	rootCmd := &cobra.Command{
		Use:   "characters",
		Short: "Browse Rick and Morty characters",
		Long: `Lists, browses and exports characters from the Rick and Morty GraphQL API.

Results can be filtered by status (alive, dead, unknown, all) and species.
Settings are read from RM_* environment variables; flags override them.

Examples:
  characters list --status dead --pages 2
  characters browse --lang de
  characters export --species Alien > aliens.jsonl`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.opts.apiURL, "api-url", "", "GraphQL endpoint (env RM_API_URL)")
	flags.StringVar(&a.opts.redisAddr, "redis", "", "Redis address for caching and rate limit state (env RM_REDIS_ADDR)")
	flags.StringVar(&a.opts.lang, "lang", "", "display language: en or de (env RM_LANG)")
	flags.StringVar(&a.opts.logLevel, "log-level", "", "debug, info, warn, error or disabled (env RM_LOG_LEVEL)")
	flags.StringVar(&a.opts.logFile, "log-file", "", "write logs to this file instead of stderr")
	flags.BoolVar(&a.opts.pretty, "pretty", false, "human-readable log output")
	flags.StringVar(&a.opts.metricsAddr, "metrics-addr", "", "serve /metrics and /health on this address")
	flags.StringVar(&a.opts.status, "status", "", "filter by status: alive, dead, unknown or all")
	flags.StringVar(&a.opts.species, "species", "", "filter by species")
	flags.BoolVar(&a.opts.fresh, "fresh", false, "drop cached character pages before running")

	rootCmd.AddCommand(
		newListCmd(a),
		newBrowseCmd(a),
		newExportCmd(a),
	)

	return rootCmd
}

// setup resolves configuration and builds the API client.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	if err := a.setupLogging(cmd); err != nil {
		return err
	}

	a.locale, err = a.bundle.ParseTag(cfg.Lang)
	if err != nil {
		return err
	}

	status, err := character.ParseStatus(a.opts.status)
	if err != nil {
		return err
	}
	a.filter = character.Filter{Status: status, Species: a.opts.species}.Normalize()

	clientCfg := cfg.ClientConfig()
	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := a.redis.Ping(cmd.Context()).Err(); err != nil {
			// Caching is optional; carry on without it.
			a.logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable, caching disabled")
			a.redis.Close()
			a.redis = nil
		} else {
			clientCfg.Redis = a.redis
		}
	}

	a.client, err = client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create API client: %w", err)
	}

	if a.opts.fresh {
		n, err := a.client.PurgeCharacters(cmd.Context())
		if err != nil {
			a.logger.Warn().Err(err).Msg("Cache purge failed")
		} else {
			a.logger.Info().Int("entries", n).Msg("Cache purged")
		}
	}

	if a.opts.metricsAddr != "" {
		ctx, cancel := context.WithCancel(cmd.Context())
		a.stopMetrics = cancel
		go func() {
			if err := metrics.Serve(ctx, a.opts.metricsAddr); err != nil {
				a.logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	a.logger.Debug().
		Str("endpoint", cfg.APIURL).
		Str("locale", a.locale).
		Stringer("filter", a.filter).
		Bool("redis", a.redis != nil).
		Msg("Configured")

	return nil
}

// applyFlags overrides environment settings with explicitly set flags.
func (a *app) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.APIURL = a.opts.apiURL
	}
	if flags.Changed("redis") {
		cfg.RedisAddr = a.opts.redisAddr
	}
	if flags.Changed("lang") {
		cfg.Lang = a.opts.lang
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.opts.logLevel
	}
}

// setupLogging configures the global logger. The interactive browser owns
// the terminal, so it only logs when a log file is given.
func (a *app) setupLogging(cmd *cobra.Command) error {
	level, err := logging.ParseLevel(a.cfg.LogLevel)
	if err != nil {
		return err
	}

	var output io.Writer = os.Stderr
	switch {
	case a.opts.logFile != "":
		f, err := os.OpenFile(a.opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.logSink = f
		output = f
	case cmd.Name() == "browse":
		level = logging.LevelDisabled
	}

	logging.Setup(logging.Config{Level: level, Pretty: a.opts.pretty, Output: output})
	a.logger = logging.NewLogger(logging.ComponentCLI)
	return nil
}

func (a *app) teardown() error {
	if a.stopMetrics != nil {
		a.stopMetrics()
	}
	if a.client != nil {
		a.client.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.logSink != nil {
		return a.logSink.Close()
	}
	return nil
}

func (a *app) translator() *i18n.Translator {
	return a.bundle.Translator(a.locale)
}
