package lookup

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/folioapp/folio-server/internal/errors"
)

// DictionaryClient queries a dictionaryapi.dev-compatible entries endpoint.
type DictionaryClient struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// NewDictionaryClient creates a dictionary client.
// Rate limited to roughly one request per second; the free endpoint throttles
// aggressively beyond that.
func NewDictionaryClient(baseURL string, timeout time.Duration, logger *slog.Logger) *DictionaryClient {
	return &DictionaryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 3),
		logger:      logger,
	}
}

type dictionaryEntry struct {
	Word     string `json:"word"`
	Phonetic string `json:"phonetic"`
	Meanings []struct {
		PartOfSpeech string `json:"partOfSpeech"`
		Definitions  []struct {
			Definition string `json:"definition"`
			Example    string `json:"example"`
		} `json:"definitions"`
	} `json:"meanings"`
}

// Define looks a word up and returns its definitions formatted as Markdown.
// Returns errors.ErrNotFound when the dictionary has no entry for the word.
func (c *DictionaryClient) Define(ctx context.Context, word string) (string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}

	entryURL := c.baseURL + "/" + url.PathEscape(word)
	c.logger.Debug("dictionary lookup", "word", word, "url", entryURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entryURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("dictionary request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", errors.NotFound(fmt.Sprintf("no dictionary entry for %q", word))
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("dictionary lookup failed: status %d", resp.StatusCode)
	}

	var entries []dictionaryEntry
	if err := json.UnmarshalRead(resp.Body, &entries); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(entries) == 0 {
		return "", errors.NotFound(fmt.Sprintf("no dictionary entry for %q", word))
	}

	return formatEntries(entries), nil
}

// formatEntries renders dictionary entries as Markdown for the lookup panel.
func formatEntries(entries []dictionaryEntry) string {
	var b strings.Builder

	first := entries[0]
	fmt.Fprintf(&b, "## %s\n", first.Word)
	if first.Phonetic != "" {
		fmt.Fprintf(&b, "*%s*\n", first.Phonetic)
	}

	for _, entry := range entries {
		for _, meaning := range entry.Meanings {
			fmt.Fprintf(&b, "\n**%s**\n", meaning.PartOfSpeech)
			for i, def := range meaning.Definitions {
				fmt.Fprintf(&b, "%d. %s\n", i+1, def.Definition)
				if def.Example != "" {
					fmt.Fprintf(&b, "   > %s\n", def.Example)
				}
			}
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
