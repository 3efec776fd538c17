// Package dictionary looks up word definitions for the reader's lookup
// panel and caches the results as cache objects.
package dictionary

import (
	"context"
	"errors"
)

var ErrWordNotFound = errors.New("word not found")

// Definition is one sense of a word.
type Definition struct {
	PartOfSpeech string `json:"partOfSpeech,omitempty"`
	Definition   string `json:"definition"`
	Example      string `json:"example,omitempty"`
}

// LookupResult contains the result of a dictionary lookup.
type LookupResult struct {
	Word          string       `json:"word"`
	Definitions   []Definition `json:"definitions"`
	Pronunciation string       `json:"pronunciation,omitempty"`
	AudioURL      string       `json:"audioUrl,omitempty"`
	Source        string       `json:"source"`
}

// Client defines the interface for dictionary API providers.
type Client interface {
	Lookup(ctx context.Context, word string) (*LookupResult, error)
	Name() string
}
