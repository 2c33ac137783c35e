package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/brightsphere/ai-gateway/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator(timeout time.Duration, entries ...Entry) *Orchestrator {
	return NewOrchestrator(NewRegistry(entries...), Options{ProviderTimeout: timeout, EventBuffer: 16})
}

func available(p providers.Provider, priority int) Entry {
	return Entry{Provider: p, Priority: priority, CredentialPresent: true}
}

func blockUntilDeadline(args mock.Arguments) {
	ctx := args.Get(0).(context.Context)
	<-ctx.Done()
}

func TestOrchestrator_TimeoutFallsThroughToNextProvider(t *testing.T) {
	p1 := providers.NewMockProvider("Provider1")
	p2 := providers.NewMockProvider("Provider2")
	p3 := providers.NewMockProvider("Provider3")

	p1.On("Complete", mock.Anything, mock.Anything).Run(blockUntilDeadline).Return("", context.DeadlineExceeded)
	p2.On("Complete", mock.Anything, mock.Anything).Return("42 is the answer", nil)

	o := newTestOrchestrator(20*time.Millisecond, available(p1, 0), available(p2, 1), available(p3, 2))
	defer o.Close()

	result := o.Complete(context.Background(), CompletionRequest{Query: "What is the answer?", UserID: "u1"})

	assert.Equal(t, "42 is the answer", result.Text)
	assert.Equal(t, "Provider2", result.ProviderUsed)
	assert.True(t, result.Success)
	assert.Empty(t, result.ErrorKind)
	require.Len(t, result.Attempts, 1)
	assert.Equal(t, "Provider1", result.Attempts[0].Provider)
	assert.Equal(t, providers.ErrorKindTimeout, result.Attempts[0].Kind)

	p1.AssertNumberOfCalls(t, "Complete", 1)
	p2.AssertNumberOfCalls(t, "Complete", 1)
	p3.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestOrchestrator_AllEmptyReturnsFallback(t *testing.T) {
	names := []string{"OpenAI", "Claude", "DeepSeek"}
	mocks := make([]*providers.MockProvider, 0, len(names))
	entries := make([]Entry, 0, len(names))
	for i, name := range names {
		m := providers.NewMockProvider(name)
		m.On("Complete", mock.Anything, mock.Anything).Return("  \n", nil)
		mocks = append(mocks, m)
		entries = append(entries, available(m, i))
	}

	o := newTestOrchestrator(time.Second, entries...)
	defer o.Close()

	result := o.Complete(context.Background(), CompletionRequest{Query: "hello"})

	assert.False(t, result.Success)
	assert.Equal(t, FallbackProviderName, result.ProviderUsed)
	assert.Equal(t, FallbackMessage, result.Text)
	assert.Equal(t, ErrorKindAllProvidersFailed, result.ErrorKind)
	require.Len(t, result.Attempts, 3)
	for _, attempt := range result.Attempts {
		assert.Equal(t, providers.ErrorKindEmpty, attempt.Kind)
	}
	for _, m := range mocks {
		m.AssertNumberOfCalls(t, "Complete", 1)
	}
}

func TestOrchestrator_NoProviders(t *testing.T) {
	unconfigured := providers.NewMockProvider("OpenAI")

	o := newTestOrchestrator(time.Second, Entry{Provider: unconfigured, CredentialPresent: false})
	defer o.Close()

	result := o.Complete(context.Background(), CompletionRequest{Query: "hello"})

	assert.False(t, result.Success)
	assert.Equal(t, FallbackProviderName, result.ProviderUsed)
	assert.Equal(t, ErrorKindNoProviders, result.ErrorKind)
	assert.Empty(t, result.Attempts)
	unconfigured.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestOrchestrator_FirstSuccessStopsIteration(t *testing.T) {
	p1 := providers.NewMockProvider("OpenAI")
	p2 := providers.NewMockProvider("Claude")
	p1.On("Complete", mock.Anything, mock.Anything).Return("Photosynthesis turns light into sugar.", nil)

	o := newTestOrchestrator(time.Second, available(p1, 0), available(p2, 1))
	defer o.Close()

	result := o.Complete(context.Background(), CompletionRequest{Query: "What is photosynthesis?"})

	assert.True(t, result.Success)
	assert.Equal(t, "OpenAI", result.ProviderUsed)
	assert.Empty(t, result.Attempts)
	p2.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestOrchestrator_TypedErrorsAreRecorded(t *testing.T) {
	p1 := providers.NewMockProvider("OpenAI")
	p2 := providers.NewMockProvider("Claude")
	p3 := providers.NewMockProvider("Gemini")

	p1.On("Complete", mock.Anything, mock.Anything).Return("", providers.NewStatusError("OpenAI", 429, errors.New("quota")))
	p2.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("connection reset"))
	p3.On("Complete", mock.Anything, mock.Anything).Return("ok", nil)

	o := newTestOrchestrator(time.Second, available(p1, 0), available(p2, 1), available(p3, 2))
	defer o.Close()

	result := o.Complete(context.Background(), CompletionRequest{Query: "hi"})

	assert.Equal(t, "Gemini", result.ProviderUsed)
	require.Len(t, result.Attempts, 2)
	assert.Equal(t, providers.ErrorKindQuota, result.Attempts[0].Kind)
	assert.Equal(t, providers.ErrorKindUpstream, result.Attempts[1].Kind)
}

func TestOrchestrator_PanicIsRecovered(t *testing.T) {
	p1 := providers.NewMockProvider("OpenAI")
	p2 := providers.NewMockProvider("Claude")
	p1.On("Complete", mock.Anything, mock.Anything).Panic("nil map write")
	p2.On("Complete", mock.Anything, mock.Anything).Return("recovered", nil)

	o := newTestOrchestrator(time.Second, available(p1, 0), available(p2, 1))
	defer o.Close()

	result := o.Complete(context.Background(), CompletionRequest{Query: "hi"})

	assert.True(t, result.Success)
	assert.Equal(t, "Claude", result.ProviderUsed)
	require.Len(t, result.Attempts, 1)
	assert.Equal(t, providers.ErrorKindUpstream, result.Attempts[0].Kind)
	assert.Contains(t, result.Attempts[0].Error, "panic")
}

func TestOrchestrator_BuildsFeaturePrompt(t *testing.T) {
	p := providers.NewMockProvider("OpenAI")
	p.On("Complete", mock.Anything, mock.MatchedBy(func(prompt providers.Prompt) bool {
		return prompt.Query == "Quiz me on fractions" &&
			strings.Contains(prompt.System, "quiz") &&
			strings.Contains(prompt.System, "Grade 5 student")
	})).Return("Q1: ...", nil)

	o := newTestOrchestrator(time.Second, available(p, 0))
	defer o.Close()

	result := o.Complete(context.Background(), CompletionRequest{
		Query:   "Quiz me on fractions",
		Feature: "quiz_generator",
		Context: "Grade 5 student",
	})

	assert.True(t, result.Success)
	p.AssertExpectations(t)
}

func TestOrchestrator_CancelledContextSkipsProviders(t *testing.T) {
	p := providers.NewMockProvider("OpenAI")

	o := newTestOrchestrator(time.Second, available(p, 0))
	defer o.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := o.Complete(ctx, CompletionRequest{Query: "hi"})

	assert.False(t, result.Success)
	assert.Equal(t, ErrorKindAllProvidersFailed, result.ErrorKind)
	p.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestOrchestrator_EventsAndStats(t *testing.T) {
	p1 := providers.NewMockProvider("OpenAI")
	p2 := providers.NewMockProvider("Claude")
	p1.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("boom"))
	p2.On("Complete", mock.Anything, mock.Anything).Return("fine", nil)

	o := newTestOrchestrator(time.Second, available(p1, 0), available(p2, 1))

	o.Complete(context.Background(), CompletionRequest{RequestID: "req_1", Query: "hi"})
	o.RecordRateLimited("req_2", "user-1")

	var types []EventType
	for i := 0; i < 3; i++ {
		select {
		case event := <-o.Events():
			types = append(types, event.Type)
		case <-time.After(time.Second):
			t.Fatal("expected event")
		}
	}
	assert.Equal(t, []EventType{EventAttemptFailed, EventCompletionSucceeded, EventRateLimited}, types)

	stats := o.Stats()
	assert.Equal(t, 1, stats.TotalRequests)
	assert.Equal(t, 1, stats.Successes)
	assert.Equal(t, 0, stats.Fallbacks)
	assert.Equal(t, 1, stats.RateLimited)
	assert.Equal(t, 1, stats.ProviderSuccesses["Claude"])
	assert.Equal(t, 1, stats.ProviderFailures["OpenAI"])

	o.Close()
	_, open := <-o.Events()
	assert.False(t, open)

	// emitting after close must not panic
	o.RecordRateLimited("req_3", "user-1")
	o.Close()
}

func TestOrchestrator_FullEventChannelDropsEvents(t *testing.T) {
	p := providers.NewMockProvider("OpenAI")
	p.On("Complete", mock.Anything, mock.Anything).Return("ok", nil)

	o := NewOrchestrator(NewRegistry(available(p, 0)), Options{EventBuffer: 1})
	defer o.Close()

	for i := 0; i < 3; i++ {
		o.Complete(context.Background(), CompletionRequest{Query: "hi"})
	}

	assert.Equal(t, 2, o.Stats().DroppedEvents)
}
