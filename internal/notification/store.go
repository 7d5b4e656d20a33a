package notification

import "context"

// Store persists notifications and serves the feed.
type Store interface {
	Insert(ctx context.Context, n Notification) (int64, error)
	// ListForUserType returns the newest feed items addressed to a user
	// type, joined with study and assessment context. Studies marked
	// Inactive are excluded.
	ListForUserType(ctx context.Context, userType string) ([]Item, error)
	// MarkRead flips one notification to read. Missing ids yield a
	// not-found error.
	MarkRead(ctx context.Context, id int64) error
	// MarkAllRead flips every unread notification for a user type and
	// returns how many rows changed.
	MarkAllRead(ctx context.Context, userType string) (int64, error)
	// UnreadCount counts unread notifications for a user type across the
	// whole table.
	UnreadCount(ctx context.Context, userType string) (int, error)
}
