package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"bugsort/internal/clusterstore"
	"bugsort/internal/config"
	"bugsort/internal/journal"
	"bugsort/internal/logging"
	"bugsort/internal/metrics"
	"bugsort/internal/pipeline"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	journalOnce sync.Once
	journal     *journal.Journal
	journalErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
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

// ensureJournal returns nil, nil when the journal is disabled.
func (c *commandContext) ensureJournal() (*journal.Journal, error) {
	c.journalOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.journalErr = err
			return
		}
		c.journal, c.journalErr = journal.Open(cfg)
	})
	return c.journal, c.journalErr
}

// openStore loads the persisted report and clusters with the journal,
// logger and screen validation wired in.
func (c *commandContext) openStore(m *metrics.Metrics, autoPersist bool) (*clusterstore.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	j, err := c.ensureJournal()
	if err != nil {
		return nil, err
	}
	matcher, err := pipeline.LoadMatcher(cfg)
	if err != nil {
		return nil, err
	}
	return clusterstore.Open(clusterstore.Paths{
		ReportsCSV:   cfg.Paths.ReportsCSV,
		ClustersJSON: cfg.Paths.ClustersJSON,
	},
		clusterstore.WithAutoPersist(autoPersist),
		clusterstore.WithJournal(j),
		clusterstore.WithLogger(logger),
		clusterstore.WithMetrics(m),
		clusterstore.WithScreenValidator(matcher.Registry().Contains),
	)
}

func (c *commandContext) close() error {
	if c.journal == nil {
		return nil
	}
	err := c.journal.Close()
	c.journal = nil
	if err != nil {
		return fmt.Errorf("close journal: %w", err)
	}
	return nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
