// Package ident derives URL-safe identifiers from free text and resolves
// collisions for project slugs and account usernames.
package ident

import (
	"context"
	"errors"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"

	"devfolio/internal/models"
)

const (
	// FallbackSlug replaces an empty slug base.
	FallbackSlug = "untitled"
	// FallbackUsername replaces a username base shorter than MinUsernameLength.
	FallbackUsername = "user"
	// MinUsernameLength is the shortest username accepted or generated.
	MinUsernameLength = 3
	// MaxUsernameAttempts caps existence probes in ResolveUniqueUsername.
	MaxUsernameAttempts = 20
)

var (
	nonWordPattern  = regexp.MustCompile(`[^\w\s-]`)
	separatorsRegex = regexp.MustCompile(`[\s_-]+`)
)

// ErrAllocationExhausted is wrapped by the AppError returned when no free
// identifier was found within the attempt budget.
var ErrAllocationExhausted = errors.New("identifier allocation exhausted")

// Normalize lower-cases and trims text, drops everything outside the
// word/whitespace/hyphen class and collapses separator runs into one hyphen.
// The result may be empty.
func Normalize(text string) string {
	s := strings.TrimSpace(strings.ToLower(text))
	s = nonWordPattern.ReplaceAllString(s, "")
	s = separatorsRegex.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// SlugBase normalizes a project title, falling back to FallbackSlug.
func SlugBase(title string) string {
	if base := Normalize(title); base != "" {
		return base
	}
	return FallbackSlug
}

// ResolveUniqueSlug returns base if it is not in existing, otherwise the first
// of base-1, base-2, ... that is not.
func ResolveUniqueSlug(base string, existing map[string]struct{}) string {
	if _, taken := existing[base]; !taken {
		return base
	}
	for n := 1; ; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if _, taken := existing[candidate]; !taken {
			return candidate
		}
	}
}

// ExistsFunc reports whether an identifier is already taken.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// UsernameResolver allocates usernames by probing an existence check and
// appending random lowercase letters on collision.
type UsernameResolver struct {
	// Letter returns a letter in a-z. Defaults to a uniform random choice.
	Letter      func() byte
	MaxAttempts int
}

// NewUsernameResolver returns a resolver with the default random source.
func NewUsernameResolver() *UsernameResolver {
	return &UsernameResolver{
		Letter:      randomLetter,
		MaxAttempts: MaxUsernameAttempts,
	}
}

func randomLetter() byte {
	return byte('a' + rand.IntN(26))
}

// Resolve returns the first candidate, starting from base, for which exists
// returns false. A failing exists check is reported as LOOKUP_FAILED and an
// exhausted attempt budget as ALLOCATION_EXHAUSTED.
func (r *UsernameResolver) Resolve(ctx context.Context, base string, exists ExistsFunc) (string, error) {
	if len(base) < MinUsernameLength {
		base = FallbackUsername
	}

	letter := r.Letter
	if letter == nil {
		letter = randomLetter
	}
	maxAttempts := r.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = MaxUsernameAttempts
	}

	candidate := base
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", models.NewLookupFailedError(err)
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", models.NewLookupFailedError(err)
		}
		if !taken {
			return candidate, nil
		}
		candidate += string(letter())
	}

	return "", models.NewAllocationExhaustedError("username", ErrAllocationExhausted)
}

// ResolveUniqueUsername resolves with the default resolver.
func ResolveUniqueUsername(ctx context.Context, base string, exists ExistsFunc) (string, error) {
	return NewUsernameResolver().Resolve(ctx, base, exists)
}
