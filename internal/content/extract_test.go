package content

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractURLStripsMarkup(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<!doctype html><html><head><title>x</title>
<script>var secret = "nope";</script><style>.a{color:red}</style></head>
<body><nav>menu</nav><h1>Tokyo itinerary</h1><p>Day one: Shibuya and Shinjuku.</p></body></html>`))
	}))
	defer server.Close()

	e := NewExtractor()
	text, err := e.ExtractURL(context.Background(), server.URL)
	require.NoError(t, err)
	require.Contains(t, text, "Tokyo itinerary")
	require.Contains(t, text, "Day one: Shibuya and Shinjuku.")
	require.NotContains(t, text, "secret")
	require.NotContains(t, text, "menu")
	require.NotContains(t, text, "<p>")
}

func TestExtractURLRejectsNonHTTPSchemes(t *testing.T) {
	t.Parallel()
	e := NewExtractor()
	_, err := e.ExtractURL(context.Background(), "file:///etc/passwd")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not supported")
}

func TestExtractURLTruncatesLongContent(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(strings.Repeat("a ", 10000)))
	}))
	defer server.Close()

	e := NewExtractor()
	e.MaxRunes = 100
	text, err := e.ExtractURL(context.Background(), server.URL)
	require.NoError(t, err)
	require.LessOrEqual(t, len([]rune(text)), 100)
}

func TestExtractURLSurfacesUpstreamStatus(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	e := NewExtractor()
	_, err := e.ExtractURL(context.Background(), server.URL)
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 404")
}
