package history

import (
	"context"
	"time"
)

// Entry is one completed lookup attributed to a user.
type Entry struct {
	UserID    int64
	Username  string
	Number    string
	CreatedAt time.Time
}

// NumberCount is an aggregate row for the stats view.
type NumberCount struct {
	Number string `json:"number"`
	Count  int64  `json:"count"`
}

// Repository stores the bounded per-user search history. Implementations
// keep at most the configured number of recent entries per user, dropping
// the oldest once the bound is exceeded.
type Repository interface {
	Append(ctx context.Context, e Entry) error
	Recent(ctx context.Context, userID int64, limit int) ([]Entry, error)
	TopNumbers(ctx context.Context, limit int) ([]NumberCount, error)
	Count(ctx context.Context) (int64, error)
	CountSince(ctx context.Context, t time.Time) (int64, error)
	Close() error
}
