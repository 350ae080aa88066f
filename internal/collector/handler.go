package collector

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"golang.org/x/sync/errgroup"
)

// ContentType is the OpenMetrics content type of the encoded scrape body
const ContentType = "application/openmetrics-text; version=1.0.0; charset=utf-8"

// ErrNoData is returned when every collector failed and none has succeeded since start
var ErrNoData = errors.New("no collector has succeeded yet")

// Handler runs all collectors and encodes the registry on each scrape
type Handler struct {
	collectors []Collector
	registry   *Registry
	logger     *slog.Logger

	// set after the first successful collection of any collector
	populated atomic.Bool
}

// NewHandler creates a handler serving registry after running collectors
func NewHandler(registry *Registry, logger *slog.Logger, collectors ...Collector) *Handler {
	return &Handler{
		collectors: collectors,
		registry:   registry,
		logger:     logger,
	}
}

// Handle collects then returns the registry as OpenMetrics text. Collector failures
// are logged and the last successfully registered values are served instead.
func (h *Handler) Handle(ctx context.Context) ([]byte, error) {
	if len(h.collectors) > 0 {
		var (
			g         errgroup.Group
			succeeded atomic.Int32
		)
		for _, c := range h.collectors {
			g.Go(func() error {
				if err := c.Collect(ctx); err != nil {
					h.logger.Error("Collector failed", "collector", c.Name(), "error", err)
					return nil
				}
				succeeded.Add(1)
				return nil
			})
		}
		_ = g.Wait()

		if succeeded.Load() > 0 {
			h.populated.Store(true)
		} else if !h.populated.Load() {
			return nil, ErrNoData
		}
	}

	var buf bytes.Buffer
	err := h.registry.View(func(g prometheus.Gatherer) error {
		mfs, err := g.Gather()
		if err != nil {
			return &RegistrationError{Err: err}
		}

		enc := expfmt.NewEncoder(&buf, expfmt.Format(ContentType))
		for _, mf := range mfs {
			if err := enc.Encode(mf); err != nil {
				return &RegistrationError{Err: err}
			}
		}
		if closer, ok := enc.(expfmt.Closer); ok {
			if err := closer.Close(); err != nil {
				return &RegistrationError{Err: err}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
