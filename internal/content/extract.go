package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultMaxBytes    = 1 << 20
	defaultMaxRunes    = 8000
	defaultHTTPTimeout = 10 * time.Second
)

// Extractor reduces a user-supplied URL to plain text so the planner can
// treat it as stated context.
type Extractor struct {
	HTTPClient *http.Client
	MaxBytes   int64
	MaxRunes   int
}

func NewExtractor() *Extractor {
	return &Extractor{
		HTTPClient: &http.Client{Timeout: defaultHTTPTimeout},
		MaxBytes:   defaultMaxBytes,
		MaxRunes:   defaultMaxRunes,
	}
}

func (e *Extractor) ExtractURL(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse source url failed: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("source url scheme %q is not supported", parsed.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build source request failed: %w", err)
	}
	req.Header.Set("Accept", "text/html,text/plain")

	client := e.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch source url failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("source url returned status %d", resp.StatusCode)
	}

	maxBytes := e.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return "", fmt.Errorf("read source body failed: %w", err)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	text := ""
	if strings.Contains(contentType, "text/html") || looksLikeHTML(body) {
		text, err = e.textFromHTML(body)
		if err != nil {
			return "", err
		}
	} else {
		text = string(body)
	}
	return e.truncate(collapseWhitespace(text)), nil
}

func (e *Extractor) textFromHTML(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("parse source html failed: %w", err)
	}
	doc.Find("script, style, noscript, nav, header, footer").Remove()
	return doc.Find("body").Text(), nil
}

func (e *Extractor) truncate(text string) string {
	maxRunes := e.MaxRunes
	if maxRunes <= 0 {
		maxRunes = defaultMaxRunes
	}
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes])
}

func looksLikeHTML(body []byte) bool {
	head := strings.ToLower(string(body[:min(len(body), 512)]))
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
