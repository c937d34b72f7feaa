package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	ProfileKeyPrefix = "profile:%s"
	PopularKeyPrefix = "projects:popular:%d"
	popularPattern   = "projects:popular:*"
)

const (
	ProfileTTL = 30 * time.Second
	PopularTTL = time.Minute
)

func ProfileKey(username string) string {
	return fmt.Sprintf(ProfileKeyPrefix, username)
}

func PopularKey(limit int) string {
	return fmt.Sprintf(PopularKeyPrefix, limit)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateProfile(ctx context.Context, username string) {
	if username == "" {
		return
	}
	Invalidate(ctx, ProfileKey(username))
}

// InvalidatePopular drops every cached popular list regardless of limit.
func InvalidatePopular(ctx context.Context) {
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, popularPattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	Invalidate(ctx, keys...)
}
