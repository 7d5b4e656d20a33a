package audit

import "context"

// Store persists and queries field-level change records.
type Store interface {
	// Insert appends entries to the trail. It participates in an enclosing
	// transaction when one is carried by ctx.
	Insert(ctx context.Context, entries []Entry) error
	// Trail returns severity and likelihood changes for an assessment,
	// newest first, optionally narrowed by field or risk factor.
	Trail(ctx context.Context, q TrailQuery) ([]TrailRecord, error)
	// ChangesByUser returns changes a user made within an assessment,
	// newest first. Email matching is case-insensitive.
	ChangesByUser(ctx context.Context, assessmentID int64, email string, limit int) ([]TrailRecord, error)
	// Summary aggregates an assessment's trail.
	Summary(ctx context.Context, assessmentID int64) (Summary, error)
}
