// Package ogimage discovers the preview image a web page advertises.
package ogimage

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"devfolio/internal/models"
	"devfolio/internal/observability"

	"github.com/gocolly/colly/v2"
)

// DefaultUserAgent identifies the scraper to the sites it fetches.
const DefaultUserAgent = "Mozilla/5.0 (compatible; OpenGraphBot/1.0)"

// Finder fetches a page and reads its Open Graph image.
type Finder struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize int
	// Transport replaces the collector's HTTP transport when set.
	Transport http.RoundTripper
}

// NewFinder returns a Finder with a 10s timeout and a 2 MB body cap.
func NewFinder() *Finder {
	return &Finder{
		UserAgent:   DefaultUserAgent,
		Timeout:     10 * time.Second,
		MaxBodySize: 2 << 20,
	}
}

// Find returns the absolute image URL advertised by pageURL, checking
// og:image, then twitter:image, then link rel=image_src. It returns ""
// when the page advertises none.
func (f *Finder) Find(ctx context.Context, pageURL string) (imageURL string, err error) {
	span, ctx := observability.StartClientSpan(ctx, "og_scraper", "visit")
	defer func() { span.Finish(err) }()

	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	c := colly.NewCollector(
		colly.UserAgent(f.UserAgent),
		colly.StdlibContext(ctx),
		colly.MaxBodySize(f.MaxBodySize),
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(f.Timeout)
	if f.Transport != nil {
		c.WithTransport(f.Transport)
	}
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	})

	// Candidates in priority order; the first non-empty match of each wins.
	var candidates [3]string
	capture := func(slot int, attr string) colly.HTMLCallback {
		return func(e *colly.HTMLElement) {
			if candidates[slot] != "" {
				return
			}
			if v := strings.TrimSpace(e.Attr(attr)); v != "" {
				candidates[slot] = e.Request.AbsoluteURL(v)
			}
		}
	}
	c.OnHTML(`meta[property="og:image"]`, capture(0, "content"))
	c.OnHTML(`meta[name="twitter:image"]`, capture(1, "content"))
	c.OnHTML(`link[rel="image_src"]`, capture(2, "href"))

	var status int
	c.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := c.Visit(pageURL); err != nil {
		return "", classify(ctx, status, err)
	}

	for _, v := range candidates {
		if v != "" {
			return v, nil
		}
	}
	return "", nil
}

func classify(ctx context.Context, status int, err error) error {
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return models.NewTimeoutError("Request timeout", err)
	}
	if status != 0 {
		return models.NewUpstreamError("Failed to fetch URL: "+http.StatusText(status), err)
	}
	return models.NewUpstreamError("Failed to extract image", err)
}
