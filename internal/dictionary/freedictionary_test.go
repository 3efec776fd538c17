package dictionary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helloResponse = `[{
	"word": "hello",
	"phonetics": [{"text": ""}, {"text": "/həˈləʊ/", "audio": "https://example.com/hello.mp3"}],
	"meanings": [
		{"partOfSpeech": "noun", "definitions": [{"definition": "A greeting.", "example": "hello there"}]},
		{"partOfSpeech": "verb", "definitions": [{"definition": "To greet."}]}
	]
}]`

func newTestServer(t *testing.T, calls *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			*calls++
		}
		switch r.URL.Path {
		case "/entries/en/hello":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(helloResponse))
		case "/entries/en/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFreeDictionaryClient_Lookup(t *testing.T) {
	srv := newTestServer(t, nil)
	c := NewFreeDictionaryClient(srv.URL+"/entries/en/", WithRateLimit(0))

	result, err := c.Lookup(context.Background(), "  Hello ")
	require.NoError(t, err)

	assert.Equal(t, "hello", result.Word)
	assert.Equal(t, "freedictionary", result.Source)
	assert.Equal(t, "/həˈləʊ/", result.Pronunciation)
	assert.Equal(t, "https://example.com/hello.mp3", result.AudioURL)
	require.Len(t, result.Definitions, 2)
	assert.Equal(t, Definition{PartOfSpeech: "noun", Definition: "A greeting.", Example: "hello there"}, result.Definitions[0])
	assert.Equal(t, "verb", result.Definitions[1].PartOfSpeech)
}

func TestFreeDictionaryClient_Errors(t *testing.T) {
	srv := newTestServer(t, nil)
	c := NewFreeDictionaryClient(srv.URL+"/entries/en", WithRateLimit(0))
	ctx := context.Background()

	_, err := c.Lookup(ctx, "")
	assert.Error(t, err)

	_, err = c.Lookup(ctx, "zzzz")
	assert.ErrorIs(t, err, ErrWordNotFound)

	_, err = c.Lookup(ctx, "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status: 500")
}

func TestRateLimiter_RespectsContext(t *testing.T) {
	rl := newRateLimiter(time.Hour)
	require.NoError(t, rl.wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, rl.wait(ctx), context.DeadlineExceeded)
}
