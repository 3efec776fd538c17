package dictionary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// FreeDictionaryClient implements Client using the Free Dictionary API.
// API docs: https://dictionaryapi.dev/
type FreeDictionaryClient struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rateLimiter
}

type rateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	interval time.Duration
}

func newRateLimiter(interval time.Duration) *rateLimiter {
	return &rateLimiter{interval: interval}
}

func (r *rateLimiter) wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if since := time.Since(r.lastCall); since < r.interval {
		timer := time.NewTimer(r.interval - since)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	r.lastCall = time.Now()
	return nil
}

// Option configures a FreeDictionaryClient.
type Option func(*FreeDictionaryClient)

// WithRateLimit sets the minimum interval between requests.
func WithRateLimit(interval time.Duration) Option {
	return func(c *FreeDictionaryClient) {
		c.rateLimiter = newRateLimiter(interval)
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *FreeDictionaryClient) {
		c.httpClient = hc
	}
}

// NewFreeDictionaryClient creates a new Free Dictionary API client. baseURL
// includes the language segment, e.g. .../api/v2/entries/en.
func NewFreeDictionaryClient(baseURL string, opts ...Option) *FreeDictionaryClient {
	c := &FreeDictionaryClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: newRateLimiter(500 * time.Millisecond),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *FreeDictionaryClient) Name() string {
	return "freedictionary"
}

// Lookup fetches word definitions from the Free Dictionary API.
func (c *FreeDictionaryClient) Lookup(ctx context.Context, word string) (*LookupResult, error) {
	word = normalize(word)
	if word == "" {
		return nil, fmt.Errorf("empty word")
	}

	if err := c.rateLimiter.wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(word), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Lingua/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch definition: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrWordNotFound, word)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var apiResponse []freeDictionaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(apiResponse) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrWordNotFound, word)
	}

	return c.convertToLookupResult(word, apiResponse), nil
}

func (c *FreeDictionaryClient) convertToLookupResult(word string, entries []freeDictionaryResponse) *LookupResult {
	result := &LookupResult{
		Word:   word,
		Source: c.Name(),
	}

	for _, entry := range entries {
		for _, phonetic := range entry.Phonetics {
			if result.Pronunciation == "" && phonetic.Text != "" {
				result.Pronunciation = phonetic.Text
			}
			if result.AudioURL == "" && phonetic.Audio != "" {
				result.AudioURL = phonetic.Audio
			}
		}

		for _, meaning := range entry.Meanings {
			for _, def := range meaning.Definitions {
				result.Definitions = append(result.Definitions, Definition{
					PartOfSpeech: meaning.PartOfSpeech,
					Definition:   def.Definition,
					Example:      def.Example,
				})
			}
		}
	}

	return result
}

func normalize(word string) string {
	return strings.TrimSpace(strings.ToLower(word))
}

// Free Dictionary API response types

type freeDictionaryResponse struct {
	Word      string             `json:"word"`
	Phonetics []freeDictPhonetic `json:"phonetics"`
	Meanings  []freeDictMeaning  `json:"meanings"`
}

type freeDictPhonetic struct {
	Text  string `json:"text"`
	Audio string `json:"audio"`
}

type freeDictMeaning struct {
	PartOfSpeech string               `json:"partOfSpeech"`
	Definitions  []freeDictDefinition `json:"definitions"`
}

type freeDictDefinition struct {
	Definition string `json:"definition"`
	Example    string `json:"example"`
}
