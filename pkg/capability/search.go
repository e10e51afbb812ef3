package capability

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const searchUserAgent = "Mozilla/5.0 (X11; Linux x86_64) axon/1.0"

var (
	reDDGLink    = regexp.MustCompile(`(?s)<a[^>]+class="result__a"[^>]+href="([^"]+)"[^>]*>(.*?)</a>`)
	reDDGSnippet = regexp.MustCompile(`(?s)<a[^>]+class="result__snippet"[^>]*>(.*?)</a>`)
	reTags       = regexp.MustCompile(`<[^>]*>`)
)

// SearchAdapter queries the DuckDuckGo HTML endpoint. No API key needed,
// which keeps the default capability table usable out of the box.
type SearchAdapter struct {
	httpClient *http.Client
	maxResults int
}

func NewSearchAdapter(maxResults int) *SearchAdapter {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &SearchAdapter{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxResults: maxResults,
	}
}

func (a *SearchAdapter) Name() string {
	return "SearchAdapter"
}

func (a *SearchAdapter) Actions() []string {
	return []string{"search"}
}

func (a *SearchAdapter) Invoke(ctx context.Context, action string, params map[string]any) (string, error) {
	switch action {
	case "search":
		query, err := StringParam(params, "query")
		if err != nil {
			return "", err
		}
		count, err := IntParam(params, "max_results", a.maxResults)
		if err != nil {
			return "", err
		}
		return a.search(ctx, query, count)
	default:
		return "", fmt.Errorf("%w: %s.%s", ErrActionNotFound, a.Name(), action)
	}
}

func (a *SearchAdapter) search(ctx context.Context, query string, count int) (string, error) {
	searchURL := fmt.Sprintf("https://html.duckduckgo.com/html/?q=%s", url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", searchUserAgent)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	return extractResults(string(body), query, count), nil
}

func extractResults(html, query string, count int) string {
	matches := reDDGLink.FindAllStringSubmatch(html, count+5)
	if len(matches) == 0 {
		return fmt.Sprintf("No results for: %s", query)
	}

	snippets := reDDGSnippet.FindAllStringSubmatch(html, count+5)

	var lines []string
	lines = append(lines, fmt.Sprintf("Results for: %s", query))

	max := count
	if len(matches) < max {
		max = len(matches)
	}
	for i := 0; i < max; i++ {
		urlStr := decodeResultURL(matches[i][1])
		title := strings.TrimSpace(stripTags(matches[i][2]))
		line := fmt.Sprintf("%d. %s\n   %s", i+1, title, urlStr)
		if i < len(snippets) {
			if snippet := strings.TrimSpace(stripTags(snippets[i][1])); snippet != "" {
				line += "\n   " + snippet
			}
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

// decodeResultURL unwraps DuckDuckGo's redirect URLs (…?uddg=<target>).
func decodeResultURL(raw string) string {
	if !strings.Contains(raw, "uddg=") {
		return raw
	}
	u, err := url.QueryUnescape(raw)
	if err != nil {
		return raw
	}
	idx := strings.Index(u, "uddg=")
	if idx == -1 {
		return raw
	}
	target := u[idx+len("uddg="):]
	if amp := strings.Index(target, "&"); amp != -1 {
		target = target[:amp]
	}
	return target
}

func stripTags(s string) string {
	return reTags.ReplaceAllString(s, "")
}
