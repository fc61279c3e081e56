package listing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Scraper enumerates file URLs from a static HTML directory-listing page.
// It is a plain anchor walk, unrelated to the export loop.
type Scraper struct {
	httpClient *http.Client
}

// NewScraper creates a scraper with the given request timeout
func NewScraper(timeout time.Duration) *Scraper {
	return &Scraper{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ListFiles fetches the listing page and returns absolute URLs of linked
// files whose name ends in one of the given suffixes. An empty suffix list
// matches every link that is not a sub-directory or a parent reference.
func (s *Scraper) ListFiles(ctx context.Context, pageURL string, suffixes ...string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listing url %q: %w", pageURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing page: %w", err)
	}

	var files []string
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href, ok := anchorHref(n); ok && wantFile(href, suffixes) {
				if ref, err := base.Parse(href); err == nil {
					abs := ref.String()
					if !seen[abs] {
						seen[abs] = true
						files = append(files, abs)
					}
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return files, nil
}

func anchorHref(n *html.Node) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == "href" && attr.Val != "" {
			return attr.Val, true
		}
	}
	return "", false
}

func wantFile(href string, suffixes []string) bool {
	// Skip parent links, sub-directories, queries and fragments
	if strings.HasPrefix(href, "?") || strings.HasPrefix(href, "#") {
		return false
	}
	if strings.HasSuffix(href, "/") || href == ".." {
		return false
	}
	if len(suffixes) == 0 {
		return true
	}
	for _, suffix := range suffixes {
		if strings.HasSuffix(href, suffix) {
			return true
		}
	}
	return false
}
