package ingest

import (
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
	snowball "github.com/kljensen/snowball/english"
)

// Tokenizer handles text tokenization and normalization. Splitting is
// delegated to the prose toolkit; cleaning, stopword filtering and
// optional stemming happen here.
type Tokenizer struct {
	stopwords map[string]struct{}
	stem      bool
}

// NewTokenizer creates a new tokenizer with the given stopword list.
func NewTokenizer(stopwords []string) *Tokenizer {
	stops := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		stops[strings.ToLower(w)] = struct{}{}
	}
	return &Tokenizer{stopwords: stops}
}

// SetStemming enables snowball stemming of surviving tokens.
// Stemming happens after cleaning and before the stopword check.
func (t *Tokenizer) SetStemming(on bool) {
	t.stem = on
}

// Tokenize splits text into normalized tokens, removing stopwords.
// Input is expected to be a single sentence; prose's own sentence
// segmentation is disabled.
func (t *Tokenizer) Tokenize(text string) ([]string, error) {
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
		prose.WithSegmentation(false))
	if err != nil {
		return nil, err
	}

	var tokens []string
	for _, tok := range doc.Tokens() {
		word := t.processToken(tok.Text)
		if word != "" {
			tokens = append(tokens, word)
		}
	}
	return tokens, nil
}

// processToken applies cleaning, stemming, and stopword filtering.
func (t *Tokenizer) processToken(token string) string {
	word := t.cleanToken(strings.ToLower(token))
	if word == "" || len(word) <= 1 {
		return ""
	}

	// Pure-numeric tokens carry no sense of their own. Mixed tokens
	// like "gpt-4" or "utf-8" are kept.
	if isNumericOnly(word) {
		return ""
	}

	if t.stem {
		word = snowball.Stem(word, false)
	}

	if t.isStopword(word) {
		return ""
	}

	return word
}

// cleanToken strips punctuation runes and leading/trailing hyphens.
func (t *Tokenizer) cleanToken(token string) string {
	token = strings.TrimFunc(token, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	// Normalize multiple consecutive hyphens to single hyphen
	for strings.Contains(token, "--") {
		token = strings.ReplaceAll(token, "--", "-")
	}

	return token
}

// isNumericOnly returns true if the token contains only digits and hyphens.
func isNumericOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '-' {
			return false
		}
	}
	return true
}

func (t *Tokenizer) isStopword(word string) bool {
	_, ok := t.stopwords[word]
	return ok
}

// AddStopword adds a word to the stopword list.
func (t *Tokenizer) AddStopword(word string) {
	t.stopwords[strings.ToLower(word)] = struct{}{}
}

// RemoveStopword removes a word from the stopword list.
func (t *Tokenizer) RemoveStopword(word string) {
	delete(t.stopwords, strings.ToLower(word))
}
