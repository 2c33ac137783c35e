// Package gateway implements provider fallback: the ordered registry and the
// orchestrator that walks it for each completion request.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/brightsphere/ai-gateway/providers"
	"github.com/brightsphere/ai-gateway/utils/logger"
)

const (
	// FallbackProviderName is reported as ProviderUsed when no provider answered.
	FallbackProviderName = "Fallback"
	// FallbackMessage is returned as Text when no provider answered.
	FallbackMessage = "I'm having trouble reaching my AI services right now. Please try again in a moment."

	ErrorKindAllProvidersFailed = "all_providers_failed"
	ErrorKindNoProviders        = "no_providers"

	DefaultProviderTimeout = 20 * time.Second
	defaultEventBuffer     = 1000
)

// CompletionRequest is one caller request.
type CompletionRequest struct {
	RequestID string
	UserID    string
	Query     string
	Feature   string
	Context   string
}

// Attempt records one failed provider call.
type Attempt struct {
	Provider string              `json:"provider"`
	Kind     providers.ErrorKind `json:"kind"`
	Error    string              `json:"error"`
	Latency  time.Duration       `json:"latency"`
}

// CompletionResult is what the orchestrator returns for every request.
// Success is false exactly when ProviderUsed is FallbackProviderName.
type CompletionResult struct {
	Text         string
	ProviderUsed string
	Success      bool
	ErrorKind    string
	Attempts     []Attempt
	Latency      time.Duration
}

// Options configures an Orchestrator. Zero values select defaults.
type Options struct {
	ProviderTimeout  time.Duration
	Logger           logger.Logger
	EventBuffer      int
	StatsLogInterval time.Duration
}

// Orchestrator calls the registry's providers in order until one answers.
type Orchestrator struct {
	registry *Registry
	timeout  time.Duration
	logger   logger.Logger

	eventChan    chan *Event
	eventMu      sync.RWMutex
	eventsClosed bool
	quit         chan struct{}
	closeOnce    sync.Once

	mu                sync.RWMutex
	startTime         time.Time
	totalRequests     int
	successCount      int
	fallbackCount     int
	rateLimitedCount  int
	droppedEvents     int
	providerSuccesses map[string]int
	providerFailures  map[string]int
}

// NewOrchestrator creates an orchestrator over registry.
func NewOrchestrator(registry *Registry, opts Options) *Orchestrator {
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = DefaultProviderTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoopLogger()
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}

	o := &Orchestrator{
		registry:          registry,
		timeout:           opts.ProviderTimeout,
		logger:            opts.Logger,
		eventChan:         make(chan *Event, opts.EventBuffer),
		quit:              make(chan struct{}),
		startTime:         time.Now(),
		providerSuccesses: make(map[string]int),
		providerFailures:  make(map[string]int),
	}

	if opts.StatsLogInterval > 0 {
		go o.startStatsLogger(opts.StatsLogInterval)
	}

	return o
}

// Registry returns the registry the orchestrator walks.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Complete runs the fallback chain for req. It never fails: when no provider
// produces text the fallback result is returned instead.
func (o *Orchestrator) Complete(ctx context.Context, req CompletionRequest) CompletionResult {
	start := time.Now()
	log := o.logger.WithFields(logger.Fields{
		"request_id": req.RequestID,
		"user_id":    req.UserID,
	})

	o.mu.Lock()
	o.totalRequests++
	o.mu.Unlock()

	available := o.registry.ListAvailable()
	if len(available) == 0 {
		log.Errorf("No AI providers configured, returning fallback")
		return o.fallback(req, start, ErrorKindNoProviders, nil)
	}

	prompt := providers.Prompt{
		System: SystemPrompt(req.Feature, req.Context),
		Query:  req.Query,
	}

	attempts := make([]Attempt, 0, len(available))
	for _, entry := range available {
		if ctx.Err() != nil {
			log.Warnf("Request context done before trying %s: %v", entry.Provider.Name(), ctx.Err())
			break
		}

		name := entry.Provider.Name()
		callStart := time.Now()
		text, err := o.callProvider(ctx, entry.Provider, prompt)
		latency := time.Since(callStart)

		if err == nil && strings.TrimSpace(text) == "" {
			err = providers.NewError(name, providers.ErrorKindEmpty, errors.New("provider returned no text"))
		}

		if err != nil {
			typed := providers.Classify(name, err)
			attempts = append(attempts, Attempt{
				Provider: name,
				Kind:     typed.Kind,
				Error:    typed.Error(),
				Latency:  latency,
			})

			o.mu.Lock()
			o.providerFailures[name]++
			o.mu.Unlock()

			log.WithFields(logger.Fields{
				"event":      "attempt_failed",
				"provider":   name,
				"kind":       string(typed.Kind),
				"latency_ms": latency.Milliseconds(),
			}).Warnf("%s failed, trying next provider: %v", name, err)
			o.emitEvent(EventAttemptFailed, req.RequestID, map[string]any{
				"provider":   name,
				"kind":       string(typed.Kind),
				"latency_ms": latency.Milliseconds(),
			})
			continue
		}

		o.mu.Lock()
		o.successCount++
		o.providerSuccesses[name]++
		o.mu.Unlock()

		result := CompletionResult{
			Text:         text,
			ProviderUsed: name,
			Success:      true,
			Attempts:     attempts,
			Latency:      time.Since(start),
		}

		log.WithFields(logger.Fields{
			"event":      "completion_succeeded",
			"provider":   name,
			"attempts":   len(attempts) + 1,
			"latency_ms": result.Latency.Milliseconds(),
		}).Printf("Completion served by %s", name)
		o.emitEvent(EventCompletionSucceeded, req.RequestID, map[string]any{
			"provider":   name,
			"feature":    NormalizeFeature(req.Feature),
			"latency_ms": result.Latency.Milliseconds(),
		})
		return result
	}

	log.WithFields(logger.Fields{"event": "completion_fallback", "attempts": len(attempts)}).
		Errorf("All AI providers failed, returning fallback")
	return o.fallback(req, start, ErrorKindAllProvidersFailed, attempts)
}

func (o *Orchestrator) fallback(req CompletionRequest, start time.Time, kind string, attempts []Attempt) CompletionResult {
	o.mu.Lock()
	o.fallbackCount++
	o.mu.Unlock()

	o.emitEvent(EventCompletionFallback, req.RequestID, map[string]any{
		"error_kind": kind,
		"attempts":   len(attempts),
	})

	return CompletionResult{
		Text:         FallbackMessage,
		ProviderUsed: FallbackProviderName,
		Success:      false,
		ErrorKind:    kind,
		Attempts:     attempts,
		Latency:      time.Since(start),
	}
}

type callResult struct {
	text string
	err  error
}

// callProvider bounds one provider call by the per-call timeout. The deadline
// holds even for adapters that ignore ctx; a panic becomes an upstream error.
func (o *Orchestrator) callProvider(ctx context.Context, p providers.Provider, prompt providers.Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	done := make(chan callResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callResult{err: providers.NewError(p.Name(), providers.ErrorKindUpstream, fmt.Errorf("panic in provider call: %v", r))}
			}
		}()

		text, err := p.Complete(ctx, prompt)
		done <- callResult{text: text, err: err}
	}()

	select {
	case res := <-done:
		return res.text, res.err
	case <-ctx.Done():
		return "", providers.NewError(p.Name(), providers.ErrorKindTimeout, fmt.Errorf("provider call: %w", ctx.Err()))
	}
}

// Close stops the stats logger and closes the event channel.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		close(o.quit)

		o.eventMu.Lock()
		o.eventsClosed = true
		close(o.eventChan)
		o.eventMu.Unlock()

		o.logStats()
	})
}
