package interactions

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/brightsphere/ai-gateway/utils/logger"
	"github.com/brightsphere/ai-gateway/utils/retry"
	"github.com/brightsphere/ai-gateway/utils/token_counter"
)

const (
	defaultWorkers      = 4
	defaultQueueSize    = 256
	defaultWriteTimeout = 5 * time.Second
)

// RecorderConfig configures a Recorder. Zero values select defaults.
type RecorderConfig struct {
	Workers      int
	QueueSize    int
	WriteTimeout time.Duration
	Retry        retry.Config
	Logger       logger.Logger
	TokenCounter token_counter.TokenCounterInterface
}

// RecorderStats counts what happened to recorded entries.
type RecorderStats struct {
	Recorded int64 `json:"recorded"`
	Dropped  int64 `json:"dropped"`
	Failed   int64 `json:"failed"`
	Queued   int   `json:"queued"`
	Busy     int   `json:"busy_workers"`
	Workers  int   `json:"workers"`
}

// Recorder writes interactions in the background. Record never blocks and
// never reports persistence failures to the caller.
type Recorder struct {
	store        Store
	logger       logger.Logger
	counter      token_counter.TokenCounterInterface
	retry        retry.Config
	writeTimeout time.Duration
	pool         *workerPool

	recorded atomic.Int64
	dropped  atomic.Int64
	failed   atomic.Int64
}

// NewRecorder starts the worker pool that persists entries into store.
func NewRecorder(store Store, cfg RecorderConfig) *Recorder {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Retry == (retry.Config{}) {
		cfg.Retry = retry.DefaultConfig()
		cfg.Retry.MaxRetries = 2
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoopLogger()
	}
	if cfg.TokenCounter == nil {
		cfg.TokenCounter = token_counter.NewEstimatingCounter()
	}
	if store == nil {
		store = NoopStore{}
	}

	r := &Recorder{
		store:        store,
		logger:       cfg.Logger,
		counter:      cfg.TokenCounter,
		retry:        cfg.Retry,
		writeTimeout: cfg.WriteTimeout,
	}
	r.pool = newWorkerPool(cfg.Workers, cfg.QueueSize, r.persist, r.onPanic)

	return r
}

// Record queues entry for persistence. It returns false when the entry was
// dropped because the queue is full or the recorder is closed.
func (r *Recorder) Record(entry *Entry) bool {
	if entry == nil {
		return false
	}
	entry.prepare()

	if !r.pool.TryDispatch(entry) {
		r.dropped.Add(1)
		r.logger.WithFields(logger.Fields{
			"event":      "interaction_dropped",
			"request_id": entry.RequestID,
			"user_id":    entry.UserID,
		}).Warnf("Interaction queue full, dropping entry %s", entry.ID)
		return false
	}
	return true
}

// Close stops accepting entries and waits for queued ones to be written.
func (r *Recorder) Close() {
	r.pool.Stop()
	stats := r.Stats()
	r.logger.Printf("Interaction recorder stopped: recorded=%d dropped=%d failed=%d",
		stats.Recorded, stats.Dropped, stats.Failed)
}

// Stats returns the recorder counters.
func (r *Recorder) Stats() RecorderStats {
	return RecorderStats{
		Recorded: r.recorded.Load(),
		Dropped:  r.dropped.Load(),
		Failed:   r.failed.Load(),
		Queued:   r.pool.GetSize(),
		Busy:     r.pool.GetBusyWorkers(),
		Workers:  r.pool.GetWorkerCount(),
	}
}

// persist runs on a worker: count tokens, write the entry, then its event.
func (r *Recorder) persist(workerID int, entry *Entry) {
	log := r.logger.WithFields(logger.Fields{
		"request_id": entry.RequestID,
		"user_id":    entry.UserID,
		"worker_id":  workerID,
	})

	if entry.PromptTokens == 0 {
		entry.PromptTokens = r.counter.CountTextTokens(entry.Query)
	}
	if entry.ResponseTokens == 0 {
		entry.ResponseTokens = r.counter.CountTextTokens(entry.Response)
	}

	if err := r.write("save_interaction", log, func(ctx context.Context) error {
		return r.store.SaveInteraction(ctx, entry)
	}); err != nil {
		r.failed.Add(1)
		log.WithFields(logger.Fields{"event": "interaction_persist_failed"}).
			Errorf("Failed to persist interaction %s: %v", entry.ID, err)
		return
	}

	event := NewAnalyticsEvent(entry)
	if err := r.write("save_analytics_event", log, func(ctx context.Context) error {
		return r.store.SaveEvent(ctx, event)
	}); err != nil {
		r.failed.Add(1)
		log.WithFields(logger.Fields{"event": "analytics_persist_failed"}).
			Errorf("Failed to persist analytics event for %s: %v", entry.ID, err)
		return
	}

	r.recorded.Add(1)
}

func (r *Recorder) write(operation string, log logger.Logger, fn func(ctx context.Context) error) error {
	return retry.Do(context.Background(), retry.Options{
		Config:    r.retry,
		Operation: operation,
		Logger:    log,
	}, func(attempt int) error {
		ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
		defer cancel()
		return fn(ctx)
	})
}

func (r *Recorder) onPanic(workerID int, entry *Entry, err error) {
	r.failed.Add(1)
	r.logger.WithFields(logger.Fields{
		"worker_id":  workerID,
		"request_id": entry.RequestID,
	}).Errorf("Recovered while persisting interaction %s: %v", entry.ID, err)
}
