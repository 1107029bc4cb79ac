package scrape

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// Options configures a HomepageScraper.
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	MaxChars     int
	MaxBodyBytes int64
}

// HomepageScraper fetches HTML via net/http, removes noise elements and
// returns bounded plaintext. One attempt per call; no retries.
type HomepageScraper struct {
	client *http.Client
	opts   Options
}

// NewHomepageScraper creates a HomepageScraper, filling zero options with
// defaults (20s timeout, 12,000 chars, 5 MiB body).
func NewHomepageScraper(opts Options) *HomepageScraper {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 5 << 20
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (compatible; InsightsBot/1.0)"
	}
	return &HomepageScraper{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts: opts,
	}
}

// Scrape fetches targetURL, following redirects, and returns its cleaned text.
// The text may be empty when the page has nothing extractable; that is not an
// error here.
func (s *HomepageScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, &FetchError{URL: targetURL, Err: eris.Wrap(err, "scrape: create request")}
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: targetURL, Err: eris.Wrap(err, "scrape: fetch")}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		head, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		block := detectBlock(resp.StatusCode, resp.Header, head)
		msg := fmt.Sprintf("scrape: status %d", resp.StatusCode)
		if block != BlockNone {
			msg += fmt.Sprintf(" (blocked: %s)", block)
		}
		return nil, &FetchError{
			URL:        targetURL,
			StatusCode: resp.StatusCode,
			Block:      block,
			Err:        eris.New(msg),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, s.opts.MaxBodyBytes))
	if err != nil {
		return nil, &FetchError{URL: targetURL, StatusCode: resp.StatusCode, Err: eris.Wrap(err, "scrape: read body")}
	}

	block := detectBlock(resp.StatusCode, resp.Header, raw)
	if block != BlockNone {
		zap.L().Warn("scrape: homepage looks like an anti-bot page",
			zap.String("url", targetURL),
			zap.String("block", string(block)),
		)
	}

	body, err := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &FetchError{URL: targetURL, StatusCode: resp.StatusCode, Err: eris.Wrap(err, "scrape: decode body")}
	}

	text, truncated, err := ExtractText(body, s.opts.MaxChars)
	if err != nil {
		return nil, &FetchError{URL: targetURL, StatusCode: resp.StatusCode, Err: err}
	}

	zap.L().Debug("scrape: homepage fetched",
		zap.String("url", targetURL),
		zap.String("final_url", resp.Request.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Int("chars", len([]rune(text))),
		zap.Bool("truncated", truncated),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Result{
		URL:        targetURL,
		StatusCode: resp.StatusCode,
		Text:       text,
		Truncated:  truncated,
		Block:      block,
	}, nil
}
