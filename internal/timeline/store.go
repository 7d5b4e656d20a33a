package timeline

import "context"

// Store persists and reads the assessment timeline.
type Store interface {
	Insert(ctx context.Context, e Entry) error
	// ForStudy returns a study's timeline, newest first.
	ForStudy(ctx context.Context, studyID int64, limit int) ([]Entry, error)
	// LatestSummaryComment returns the newest summary comment text for an
	// assessment, or nil when none exists.
	LatestSummaryComment(ctx context.Context, assessmentID int64) (*string, error)
}
