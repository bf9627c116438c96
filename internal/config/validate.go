package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDirectives(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateCollaborators(); err != nil {
		return err
	}
	if err := c.validateEnrich(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDirectives() error {
	if c.Directives.Path == "" {
		return nil
	}
	switch strings.ToLower(filepath.Ext(c.Directives.Path)) {
	case ".json", ".yaml", ".yml":
		return nil
	default:
		return errors.New("directives.path must end in .json, .yaml, or .yml")
	}
}

func (c *Config) validateMatching() error {
	for key, value := range map[string]int{
		"matching.fuzzy_threshold_loose":  c.Matching.FuzzyThresholdLoose,
		"matching.fuzzy_threshold_strict": c.Matching.FuzzyThresholdStrict,
	} {
		if value < 1 || value > 100 {
			return fmt.Errorf("%s must be between 1 and 100", key)
		}
	}
	if c.Matching.FuzzyThresholdStrict < c.Matching.FuzzyThresholdLoose {
		return errors.New("matching.fuzzy_threshold_strict must be >= matching.fuzzy_threshold_loose")
	}
	if c.Matching.YearTolerance < 0 {
		return errors.New("matching.year_tolerance must be >= 0")
	}
	return nil
}

func (c *Config) validateCollaborators() error {
	if err := ensurePositiveMap(map[string]int{
		"tmdb.timeout_seconds": c.TMDB.TimeoutSeconds,
		"llm.timeout_seconds":  c.LLM.TimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.TMDB.RequestsPerSecond <= 0 {
		return errors.New("tmdb.requests_per_second must be positive")
	}
	if c.LLM.RequestsPerMinute <= 0 {
		return errors.New("llm.requests_per_minute must be positive")
	}
	return nil
}

func (c *Config) validateEnrich() error {
	if err := ensurePositiveMap(map[string]int{
		"enrich.workers":         c.Enrich.Workers,
		"enrich.batch_size":      c.Enrich.BatchSize,
		"enrich.max_segments":    c.Enrich.MaxSegments,
		"enrich.max_quote_chars": c.Enrich.MaxQuoteChars,
	}); err != nil {
		return err
	}
	if c.Enrich.MetadataYearTolerance < 0 {
		return errors.New("enrich.metadata_year_tolerance must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
