package providers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brightsphere/ai-gateway/utils/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newTestAnthropic(t *testing.T, handler http.HandlerFunc) *AnthropicProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewAnthropicProvider(AnthropicConfig{
		APIKey:  "test-key",
		URL:     server.URL,
		Timeout: time.Second,
	}, httpclient.New("ai-gateway-test"))
}

func TestAnthropicProvider_Complete(t *testing.T) {
	provider := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, defaultAnthropicModel, gjson.GetBytes(body, "model").String())
		assert.Equal(t, "You are a maths tutor.", gjson.GetBytes(body, "system").String())
		assert.Equal(t, "user", gjson.GetBytes(body, "messages.0.role").String())
		assert.Equal(t, "What is 6 x 7?", gjson.GetBytes(body, "messages.0.content").String())
		assert.Equal(t, int64(1024), gjson.GetBytes(body, "max_tokens").Int())

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","content":[{"type":"text","text":"42 is "},{"type":"tool_use","id":"t"},{"type":"text","text":"the answer"}]}`)
	})

	text, err := provider.Complete(context.Background(), Prompt{System: "You are a maths tutor.", Query: "What is 6 x 7?"})
	require.NoError(t, err)
	assert.Equal(t, "42 is the answer", text)
	assert.Equal(t, "Claude", provider.Name())
}

func TestAnthropicProvider_OmitsEmptySystem(t *testing.T) {
	provider := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.False(t, gjson.GetBytes(body, "system").Exists())
		io.WriteString(w, `{"content":[{"type":"text","text":"ok"}]}`)
	})

	text, err := provider.Complete(context.Background(), Prompt{Query: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestAnthropicProvider_Failures(t *testing.T) {
	testCases := []struct {
		name     string
		status   int
		body     string
		expected ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`, ErrorKindAuth},
		{"rate limited", http.StatusTooManyRequests, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`, ErrorKindQuota},
		{"overloaded", 529, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`, ErrorKindUpstream},
		{"not json", http.StatusOK, `<html>oops</html>`, ErrorKindMalformed},
		{"no content", http.StatusOK, `{"id":"msg_1"}`, ErrorKindMalformed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			provider := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			})

			text, err := provider.Complete(context.Background(), Prompt{Query: "hi"})
			assert.Empty(t, text)
			require.Error(t, err)
			assert.Equal(t, tc.expected, KindOf(err))
		})
	}
}

func TestAnthropicProvider_Timeout(t *testing.T) {
	provider := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		io.WriteString(w, `{"content":[{"type":"text","text":"late"}]}`)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := provider.Complete(ctx, Prompt{Query: "hi"})
	require.Error(t, err)
	assert.Equal(t, ErrorKindTimeout, KindOf(err))
}
