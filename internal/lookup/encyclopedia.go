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

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/time/rate"

	"github.com/folioapp/folio-server/internal/errors"
)

// EncyclopediaClient queries a Wikipedia REST page-summary endpoint.
type EncyclopediaClient struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// NewEncyclopediaClient creates an encyclopedia client.
func NewEncyclopediaClient(baseURL string, timeout time.Duration, logger *slog.Logger) *EncyclopediaClient {
	return &EncyclopediaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 3),
		logger:      logger,
	}
}

type pageSummary struct {
	Title       string `json:"title"`
	Type        string `json:"type"`
	Extract     string `json:"extract"`
	ExtractHTML string `json:"extract_html"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// Summary is an encyclopedia article summary.
type Summary struct {
	Title      string
	Content    string // Markdown
	ArticleURL string
}

// Summarize fetches the article summary for a term. Returns
// errors.ErrNotFound when no article exists or only a disambiguation page
// matches.
func (c *EncyclopediaClient) Summarize(ctx context.Context, term string) (Summary, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return Summary{}, fmt.Errorf("rate limit: %w", err)
	}

	summaryURL := c.baseURL + "/" + url.PathEscape(term)
	c.logger.Debug("encyclopedia lookup", "term", term, "url", summaryURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, summaryURL, nil)
	if err != nil {
		return Summary{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Summary{}, fmt.Errorf("encyclopedia request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Summary{}, errors.NotFound(fmt.Sprintf("no article for %q", term))
	case resp.StatusCode != http.StatusOK:
		return Summary{}, fmt.Errorf("encyclopedia lookup failed: status %d", resp.StatusCode)
	}

	var page pageSummary
	if err := json.UnmarshalRead(resp.Body, &page); err != nil {
		return Summary{}, fmt.Errorf("parse response: %w", err)
	}

	// A disambiguation page has no usable summary.
	if page.Type == "disambiguation" || (page.Extract == "" && page.ExtractHTML == "") {
		return Summary{}, errors.NotFound(fmt.Sprintf("no article for %q", term))
	}

	content := page.Extract
	if page.ExtractHTML != "" {
		md, err := htmltomarkdown.ConvertString(page.ExtractHTML)
		if err != nil {
			c.logger.Warn("summary html conversion failed, using plain extract",
				"term", term,
				"error", err,
			)
		} else {
			content = strings.TrimSpace(md)
		}
	}

	return Summary{
		Title:      page.Title,
		Content:    content,
		ArticleURL: page.ContentURLs.Desktop.Page,
	}, nil
}
