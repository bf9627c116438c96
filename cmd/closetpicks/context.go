package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"closetpicks/internal/config"
	"closetpicks/internal/directives"
	"closetpicks/internal/logging"
	"closetpicks/internal/matcher"
	"closetpicks/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// openStore returns the config, logger, and document store every data
// command needs.
func (c *commandContext) openStore() (*config.Config, *slog.Logger, *store.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, nil, err
	}
	st, err := store.Open(cfg.Paths.DataDir, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, st, nil
}

func (c *commandContext) directiveTable(cfg *config.Config, logger *slog.Logger) (*directives.Table, error) {
	return directives.NewSource(cfg.Directives.Path, logger).Table()
}

// matcherOptions maps [matching]; year_tolerance = 0 there means exact years.
func matcherOptions(cfg *config.Config) matcher.Options {
	opts := matcher.Options{
		LooseThreshold:  cfg.Matching.FuzzyThresholdLoose,
		StrictThreshold: cfg.Matching.FuzzyThresholdStrict,
		YearTolerance:   cfg.Matching.YearTolerance,
	}
	if opts.YearTolerance == 0 {
		opts.YearTolerance = matcher.ExactYear
	}
	return opts
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
