package gateway

import (
	"time"
)

type EventType string

const (
	EventAttemptFailed       EventType = "attempt_failed"
	EventCompletionSucceeded EventType = "completion_succeeded"
	EventCompletionFallback  EventType = "completion_fallback"
	EventRateLimited         EventType = "rate_limited"
)

type Event struct {
	Type      EventType      `json:"type"`
	RequestID string         `json:"request_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Stats is a point-in-time snapshot of orchestrator counters.
type Stats struct {
	TotalRequests     int            `json:"total_requests"`
	Successes         int            `json:"successes"`
	Fallbacks         int            `json:"fallbacks"`
	RateLimited       int            `json:"rate_limited"`
	ProviderSuccesses map[string]int `json:"provider_successes"`
	ProviderFailures  map[string]int `json:"provider_failures"`
	DroppedEvents     int            `json:"dropped_events"`
	Uptime            string         `json:"uptime"`
}

// Events returns the event channel for external listeners. It is closed by Close.
func (o *Orchestrator) Events() <-chan *Event {
	return o.eventChan
}

// emitEvent sends an event to the event channel (non-blocking)
func (o *Orchestrator) emitEvent(eventType EventType, requestID string, data map[string]any) {
	o.eventMu.RLock()
	defer o.eventMu.RUnlock()

	if o.eventChan == nil || o.eventsClosed {
		return
	}

	event := &Event{
		Type:      eventType,
		RequestID: requestID,
		Timestamp: time.Now(),
		Data:      data,
	}

	select {
	case o.eventChan <- event:
	default:
		// Channel full, drop event to avoid blocking the request
		o.mu.Lock()
		o.droppedEvents++
		o.mu.Unlock()
	}
}

// RecordRateLimited counts a request rejected by the rate limiter and emits an event.
func (o *Orchestrator) RecordRateLimited(requestID string, userID string) {
	o.mu.Lock()
	o.rateLimitedCount++
	o.mu.Unlock()

	o.emitEvent(EventRateLimited, requestID, map[string]any{"user_id": userID})
}

// Stats returns the stats of the orchestrator
func (o *Orchestrator) Stats() Stats {
	o.mu.RLock()
	defer o.mu.RUnlock()

	successes := make(map[string]int, len(o.providerSuccesses))
	for name, n := range o.providerSuccesses {
		successes[name] = n
	}
	failures := make(map[string]int, len(o.providerFailures))
	for name, n := range o.providerFailures {
		failures[name] = n
	}

	return Stats{
		TotalRequests:     o.totalRequests,
		Successes:         o.successCount,
		Fallbacks:         o.fallbackCount,
		RateLimited:       o.rateLimitedCount,
		ProviderSuccesses: successes,
		ProviderFailures:  failures,
		DroppedEvents:     o.droppedEvents,
		Uptime:            time.Since(o.startTime).Round(time.Second).String(),
	}
}

func (o *Orchestrator) logStats() {
	stats := o.Stats()
	if stats.TotalRequests == 0 && stats.RateLimited == 0 {
		return
	}

	o.logger.Printf("Gateway: Requests(%d) Succeeded(%d) Fallback(%d) RateLimited(%d) Providers%v",
		stats.TotalRequests,
		stats.Successes,
		stats.Fallbacks,
		stats.RateLimited,
		stats.ProviderSuccesses,
	)
}

// startStatsLogger logs stats periodically until Close
func (o *Orchestrator) startStatsLogger(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			o.logStats()
		case <-o.quit:
			return
		}
	}
}
