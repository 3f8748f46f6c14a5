package audit

import (
	"context"
	"sync"
	"time"

	"github.com/mikey/email-risk/internal/core"
	"github.com/mikey/email-risk/internal/metrics"
	"go.uber.org/zap"
)

const (
	defaultQueueSize    = 256
	defaultWriteTimeout = 5 * time.Second
)

// Dispatcher hands security events to a sink on a background worker so
// that Record never blocks the caller. Events arriving while the queue is
// full are dropped.
type Dispatcher struct {
	sink         core.SecurityEventSink
	queue        chan *core.SecurityEvent
	writeTimeout time.Duration
	logger       *zap.Logger

	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	stopped sync.Once
}

// NewDispatcher starts a worker delivering to sink
func NewDispatcher(sink core.SecurityEventSink, queueSize int, logger *zap.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	d := &Dispatcher{
		sink:         sink,
		queue:        make(chan *core.SecurityEvent, queueSize),
		writeTimeout: defaultWriteTimeout,
		logger:       logger,
		done:         make(chan struct{}),
	}
	go d.run()
	return d
}

// Record implements core.SecurityEventSink. It only enqueues.
func (d *Dispatcher) Record(_ context.Context, event *core.SecurityEvent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		metrics.AuditEventsTotal.WithLabelValues("dropped").Inc()
		return nil
	}

	select {
	case d.queue <- event:
	default:
		metrics.AuditEventsTotal.WithLabelValues("dropped").Inc()
		d.logger.Warn("Audit queue full, dropping security event",
			zap.String("event_type", event.EventType),
			zap.String("domain", event.Domain))
	}
	return nil
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for event := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.writeTimeout)
		err := d.sink.Record(ctx, event)
		cancel()

		if err != nil {
			metrics.AuditEventsTotal.WithLabelValues("failed").Inc()
			d.logger.Warn("Failed to record security event",
				zap.String("id", event.ID),
				zap.String("event_type", event.EventType),
				zap.Error(err))
			continue
		}
		metrics.AuditEventsTotal.WithLabelValues("written").Inc()
	}
}

// Stop drains queued events and closes the underlying sink if it can be
// stopped.
func (d *Dispatcher) Stop() error {
	var err error
	d.stopped.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()

		<-d.done
		if stoppable, ok := d.sink.(interface{ Stop() error }); ok {
			err = stoppable.Stop()
		}
	})
	return err
}
