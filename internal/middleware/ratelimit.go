// Package middleware provides logging, tracing, metrics and rate limiting middleware for the application.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"devfolio/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Rule is a fixed-window quota for one named resource.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Quotas applied to the write-heavy and outbound-fetching routes. View
// recording has none: every call counts.
var (
	SearchRule      = Rule{Name: "search", Limit: 30, Window: time.Minute}
	ImageProxyRule  = Rule{Name: "image_proxy", Limit: 120, Window: time.Minute}
	OGImageRule     = Rule{Name: "og_image", Limit: 30, Window: time.Minute}
	LikeRule        = Rule{Name: "like", Limit: 30, Window: time.Minute}
	CommentRule     = Rule{Name: "create_comment", Limit: 5, Window: time.Minute}
	UploadRule      = Rule{Name: "upload", Limit: 20, Window: 10 * time.Minute}
	DescriptionRule = Rule{Name: "ai_description", Limit: 10, Window: 10 * time.Minute}
)

var errNoStore = errors.New("rate limit store not configured")

// Limiter counts requests per subject in Redis. It fails open: a missing or
// failing store lets the request through.
type Limiter struct {
	rdb     *redis.Client
	enabled bool
}

// NewLimiter returns a limiter that only counts outside the test and
// development environments.
func NewLimiter(rdb *redis.Client, env string) *Limiter {
	return &Limiter{rdb: rdb, enabled: env != "test" && env != "development" && env != ""}
}

// Allow records one hit for subject under rule and reports whether it fits
// the quota, with the time left in the current window.
func (l *Limiter) Allow(ctx context.Context, rule Rule, subject string) (bool, time.Duration, error) {
	if !l.enabled {
		return true, 0, nil
	}
	if l.rdb == nil {
		return true, 0, errNoStore
	}

	key := "rl:" + rule.Name + ":" + subject
	hits, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return true, 0, err
	}
	if hits == 1 {
		if err := l.rdb.Expire(ctx, key, rule.Window).Err(); err != nil {
			return true, 0, err
		}
		return true, rule.Window, nil
	}

	ttl, err := l.rdb.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = rule.Window
	}
	return hits <= int64(rule.Limit), ttl, nil
}

// Handler enforces rule. Authenticated requests are keyed by account,
// anonymous ones by client IP.
func (l *Limiter) Handler(rule Rule) fiber.Handler {
	return func(c *fiber.Ctx) error {
		subject := "ip:" + c.IP()
		if accountID, ok := c.Locals("accountID").(string); ok && accountID != "" {
			subject = "account:" + accountID
		}

		allowed, retryAfter, err := l.Allow(c.UserContext(), rule, subject)
		if err != nil && !errors.Is(err, errNoStore) {
			Logger.WarnContext(c.UserContext(), "rate limit store unavailable, allowing request",
				slog.String("resource", rule.Name),
				slog.String("error", err.Error()),
			)
		}
		if allowed {
			return c.Next()
		}

		RateLimitRejections.WithLabelValues(rule.Name).Inc()
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(retryAfter.Round(time.Second).Seconds())))
		return models.RespondWithError(c, fiber.StatusTooManyRequests, models.NewRateLimitedError())
	}
}
