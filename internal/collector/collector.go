package collector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/R167/raspi_exporter/internal/client"
)

// Collector is one named collection unit run on every scrape
type Collector interface {
	Name() string
	Collect(ctx context.Context) error
}

// ThrottledCollector runs get_throttled, decodes it and registers the result
type ThrottledCollector struct {
	runner     client.Runner
	parser     client.Parser
	registerer Registerer
	logger     *slog.Logger
}

// NewThrottledCollector creates the "throttled" collector
func NewThrottledCollector(runner client.Runner, parser client.Parser, registerer Registerer, logger *slog.Logger) *ThrottledCollector {
	return &ThrottledCollector{
		runner:     runner,
		parser:     parser,
		registerer: registerer,
		logger:     logger,
	}
}

// Name implements Collector
func (c *ThrottledCollector) Name() string {
	return "throttled"
}

// Collect implements Collector. Any stage failure aborts the poll before the
// registry is touched.
func (c *ThrottledCollector) Collect(ctx context.Context) error {
	c.logger.Debug("Collecting throttled")

	output, err := c.runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("collector %s: %w", c.Name(), err)
	}

	state, err := c.parser.Parse(output)
	if err != nil {
		return fmt.Errorf("collector %s: %w", c.Name(), err)
	}

	if err := c.registerer.Register(state); err != nil {
		return fmt.Errorf("collector %s: %w", c.Name(), err)
	}

	c.logger.Debug("Succeeded collecting throttled", "state", fmt.Sprintf("%+v", state))
	return nil
}
