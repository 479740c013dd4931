package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix       = "user:%d"
	PublicFeedKeyPrefix = "posts:public:%d:%d"
	publicFeedPattern   = "posts:public:*"
	CategoriesKey       = "categories:all"
)

const (
	UserTTL       = 5 * time.Minute
	PublicFeedTTL = 30 * time.Second
	CategoriesTTL = time.Hour
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// PublicFeedKey identifies one page of the anonymous public feed.
func PublicFeedKey(limit, offset int) string {
	return fmt.Sprintf(PublicFeedKeyPrefix, limit, offset)
}

func Invalidate(ctx context.Context, key string) {
	if rdb := GetClient(); rdb != nil {
		rdb.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidatePublicFeed drops every cached feed page. Any post write can
// change any page, so pages are cleared by pattern.
func InvalidatePublicFeed(ctx context.Context) {
	rdb := GetClient()
	if rdb == nil {
		return
	}
	iter := rdb.Scan(ctx, 0, publicFeedPattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		rdb.Del(ctx, keys...)
	}
}
