package ingest

import (
	"context"
	"sync"

	"github.com/channelwatch/pkg/logger"
)

// Connector is one concrete collection mechanism: a feed poller, a chat
// listener. The pipeline core depends only on this interface, never on a
// concrete connector.
type Connector interface {
	// Name returns the connector's collector short name
	Name() string

	// Connect establishes any external session and registers the collector
	// and its sources. Called once before Run.
	Connect(ctx context.Context) error

	// Run is the connector's main loop. It blocks until the context is
	// cancelled or the connector fails.
	Run(ctx context.Context) error

	// Disconnect tears down any external session. Called after Run returns.
	Disconnect() error
}

// Runner executes a set of connectors, each in its own goroutine, and waits
// for all of them to finish on shutdown.
type Runner struct {
	connectors []Connector
	log        *logger.Logger
}

// NewRunner creates a runner over the given connectors
func NewRunner(connectors []Connector, log *logger.Logger) *Runner {
	return &Runner{
		connectors: connectors,
		log:        log.WithComponent("runner"),
	}
}

// Run starts every connector and blocks until all have stopped. A connector
// that fails to connect or exits with an error is logged and abandoned; the
// remaining connectors keep running.
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for _, connector := range r.connectors {
		wg.Add(1)
		go func(c Connector) {
			defer wg.Done()
			log := r.log.WithCollector(c.Name())

			if err := c.Connect(ctx); err != nil {
				log.Error().Err(err).Msg("Connector failed to connect")
				return
			}
			defer func() {
				if err := c.Disconnect(); err != nil {
					log.Warn().Err(err).Msg("Connector failed to disconnect cleanly")
				}
			}()

			log.Info().Msg("Connector started")
			if err := c.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Connector stopped with error")
				return
			}
			log.Info().Msg("Connector stopped")
		}(connector)
	}

	wg.Wait()
}
