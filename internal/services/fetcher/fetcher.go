// Package fetcher performs an optional, best-effort page prefetch so the
// prompt can carry the real page title and a content excerpt instead of the
// bare URL. A fetch failure never fails the pipeline.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/repono/internal/common"
)

// maxBodyBytes bounds how much HTML is read from the remote page
const maxBodyBytes = 2 * 1024 * 1024

// PageInfo is what a successful prefetch yields
type PageInfo struct {
	Title   string
	Excerpt string // markdown rendering of the page body, capped
}

// Service fetches and extracts page content
type Service struct {
	config *common.FetcherConfig
	client *http.Client
	logger arbor.ILogger
}

// NewService creates a fetcher from configuration
func NewService(config *common.FetcherConfig, logger arbor.ILogger) *Service {
	timeout := common.ProviderTimeout(config.Timeout)
	return &Service{
		config: config,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Enabled reports whether prefetch is turned on in configuration
func (s *Service) Enabled() bool {
	return s.config.Enabled
}

// Fetch downloads the page and extracts its title and a markdown excerpt.
// Only HTML responses are processed; anything else yields an error the
// caller treats as a skipped prefetch.
func (s *Service) Fetch(ctx context.Context, targetURL string) (*PageInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if s.config.UserAgent != "" {
		req.Header.Set("User-Agent", s.config.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned HTTP %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "html") {
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read page body: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}

	info := &PageInfo{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}

	// Strip chrome that only adds prompt noise
	doc.Find("script, style, nav, footer, header, noscript, iframe").Remove()
	bodyHTML, err := doc.Find("body").Html()
	if err != nil || bodyHTML == "" {
		return info, nil
	}

	mdConverter := md.NewConverter(targetURL, true, nil)
	converted, err := mdConverter.ConvertString(bodyHTML)
	if err != nil {
		s.logger.Debug().Err(err).Str("url", targetURL).Msg("HTML to markdown conversion failed, keeping title only")
		return info, nil
	}

	converted = strings.TrimSpace(converted)
	maxChars := s.config.MaxExcerptChars
	if maxChars <= 0 {
		maxChars = 4000
	}
	if len(converted) > maxChars {
		converted = converted[:maxChars]
	}
	info.Excerpt = converted

	return info, nil
}
