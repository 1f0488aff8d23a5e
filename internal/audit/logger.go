package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// LoggerConfig tunes the detached writer.
type LoggerConfig struct {
	// QueueSize bounds the records waiting to be written. Log drops records
	// once the queue is full.
	QueueSize int
	Workers   int
	// WriteTimeout bounds a single Insert.
	WriteTimeout time.Duration
	// Debug reports swallowed failures on Diagnostics. Production leaves it off.
	Debug       bool
	Diagnostics *slog.Logger
	Now         func() time.Time
}

// Logger writes audit records off the request path. Log never blocks and
// never reports failure to its caller.
type Logger struct {
	store    Store
	cfg      LoggerConfig
	queue    chan Record
	mu       sync.RWMutex
	closed   bool
	started  bool
	wg       sync.WaitGroup
	failures atomic.Int64
	dropped  atomic.Int64
}

// NewLogger constructs a Logger. Call Start (or Run) to begin writing.
func NewLogger(store Store, cfg LoggerConfig) *Logger {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.Diagnostics == nil {
		cfg.Diagnostics = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Logger{store: store, cfg: cfg, queue: make(chan Record, cfg.QueueSize)}
}

// Log queues rec for writing.
func (l *Logger) Log(rec Record) {
	if l == nil {
		return
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = l.cfg.Now().UTC()
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.drop(rec, "logger closed")
		return
	}
	select {
	case l.queue <- rec:
	default:
		l.drop(rec, "queue full")
	}
}

// Start launches the workers. It is a no-op when already started.
func (l *Logger) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started || l.closed {
		return
	}
	l.started = true
	for i := 0; i < l.cfg.Workers; i++ {
		l.wg.Add(1)
		go l.work()
	}
}

// Run starts the workers and drains the queue once ctx is cancelled.
func (l *Logger) Run(ctx context.Context) error {
	l.Start()
	<-ctx.Done()
	l.Close()
	return nil
}

// Close stops accepting records and waits for queued ones to be written.
func (l *Logger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.queue)
	started := l.started
	l.mu.Unlock()

	if !started {
		for rec := range l.queue {
			l.write(rec)
		}
		return
	}
	l.wg.Wait()
}

// Failures counts records whose write failed.
func (l *Logger) Failures() int64 { return l.failures.Load() }

// Dropped counts records that never reached the store.
func (l *Logger) Dropped() int64 { return l.dropped.Load() }

func (l *Logger) work() {
	defer l.wg.Done()
	for rec := range l.queue {
		l.write(rec)
	}
}

func (l *Logger) write(rec Record) {
	defer func() {
		if r := recover(); r != nil {
			l.fail(rec, fmt.Errorf("audit: store panic: %v", r))
		}
	}()
	if l.store == nil {
		l.fail(rec, fmt.Errorf("audit: store not configured"))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.cfg.WriteTimeout)
	defer cancel()
	if err := l.store.Insert(ctx, rec); err != nil {
		l.fail(rec, err)
	}
}

func (l *Logger) fail(rec Record, err error) {
	l.failures.Add(1)
	if !l.cfg.Debug {
		return
	}
	l.cfg.Diagnostics.Warn("audit write failed",
		slog.String("action", rec.Action.String()),
		slog.String("entity", rec.Entity),
		slog.String("entity_id", rec.EntityID),
		slog.Any("error", err),
	)
}

func (l *Logger) drop(rec Record, reason string) {
	l.dropped.Add(1)
	if !l.cfg.Debug {
		return
	}
	l.cfg.Diagnostics.Warn("audit record dropped",
		slog.String("reason", reason),
		slog.String("action", rec.Action.String()),
		slog.String("entity", rec.Entity),
	)
}
