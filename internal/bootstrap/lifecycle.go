package bootstrap

import (
	"context"
	"io"
	"sync"
	"time"

	"diabetes-risk/internal/adapters/kafka"
	"diabetes-risk/internal/api"
	"diabetes-risk/internal/ml"
	chrepo "diabetes-risk/internal/repository/clickhouse"
	"diabetes-risk/pkg/errors"
	"diabetes-risk/pkg/logger"
)

// Components lists what Shutdown stops. Nil fields are skipped.
type Components struct {
	WG           *sync.WaitGroup
	HTTPServer   *api.Server
	Journal      *chrepo.PredictionJournal
	Producer     *kafka.Producer
	Model        *ml.Model
	Stores       map[string]io.Closer
	ErrorTracker errors.Tracker
}

// Lifecycle stops components in dependency order within a global deadline
type Lifecycle struct {
	shutdownTimeout time.Duration
}

// NewLifecycle creates a new lifecycle manager
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		shutdownTimeout: 30 * time.Second,
	}
}

type shutdownStep struct {
	name    string
	timeout time.Duration
	run     func(ctx context.Context) error
}

// Shutdown runs each step in order. The journal flushes after the server
// stops taking requests and before its ClickHouse connection closes; the
// producer closes only once no request can publish.
func (l *Lifecycle) Shutdown(c Components, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer cancel()

	steps := []shutdownStep{
		{"Stopping HTTP server", 5 * time.Second, func(ctx context.Context) error {
			if c.HTTPServer == nil {
				return nil
			}
			return c.HTTPServer.Shutdown(ctx)
		}},
		{"Waiting for background goroutines", 5 * time.Second, func(ctx context.Context) error {
			return waitGroup(ctx, c.WG)
		}},
		{"Flushing prediction journal", 10 * time.Second, func(ctx context.Context) error {
			if c.Journal == nil {
				return nil
			}
			if err := c.Journal.Stop(ctx); err != nil {
				return err
			}
			stats := c.Journal.Stats()
			log.Infow("Journal totals", "flushed", stats.Flushed, "failed", stats.Failed, "dropped", stats.Dropped)
			return nil
		}},
		{"Closing Kafka producer", 0, func(context.Context) error {
			if c.Producer == nil {
				return nil
			}
			return c.Producer.Close()
		}},
		{"Releasing model", 0, func(context.Context) error {
			if c.Model != nil {
				c.Model.Close()
			}
			return nil
		}},
		{"Closing stores", 0, func(context.Context) error {
			return closeAll(c.Stores)
		}},
		{"Flushing error tracker", 3 * time.Second, func(ctx context.Context) error {
			if c.ErrorTracker == nil {
				return nil
			}
			return c.ErrorTracker.Flush(ctx)
		}},
	}

	for i, step := range steps {
		log.Infof("[%d/%d] %s...", i+1, len(steps), step.name)

		stepCtx, stepCancel := ctx, context.CancelFunc(func() {})
		if step.timeout > 0 {
			stepCtx, stepCancel = context.WithTimeout(ctx, step.timeout)
		}
		err := step.run(stepCtx)
		stepCancel()

		if err != nil {
			log.Errorw("Shutdown step failed", "step", step.name, "error", err)
		}
	}

	log.Info("✅ Graceful shutdown complete")
	_ = logger.Sync()
}

func waitGroup(ctx context.Context, wg *sync.WaitGroup) error {
	if wg == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "background goroutines still running")
	}
}

func closeAll(stores map[string]io.Closer) error {
	var errs []error
	for name, s := range stores {
		if err := s.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, name))
		}
	}
	return errors.Join(errs...)
}
