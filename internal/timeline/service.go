package timeline

import (
	"context"
	"fmt"
	"log/slog"
)

const defaultLimit = 100

// Tracker records monitoring history around assessment saves and serves
// the timeline grid. Tracking failures are logged and never propagated,
// so a save cannot fail on timeline bookkeeping.
type Tracker struct {
	store  Store
	logger *slog.Logger
}

func NewTracker(store Store, logger *slog.Logger) *Tracker {
	return &Tracker{store: store, logger: logger}
}

// Track records the timeline consequence of a save: an "Initial
// Assessment" entry for a new assessment, a "Schedule Update" entry when
// the monitoring schedule changed, and nothing otherwise.
func (t *Tracker) Track(ctx context.Context, event SaveEvent, userName, userEmail string) {
	note, err := t.store.LatestSummaryComment(ctx, event.AssessmentID)
	if err != nil {
		t.logger.ErrorContext(ctx, "reading latest summary comment",
			slog.Int64("assessment_id", event.AssessmentID), slog.Any("error", err))
		note = nil
	}
	if note == nil && event.FallbackComment != "" {
		note = &event.FallbackComment
	}

	entry := Entry{
		StudyID:         event.StudyID,
		AssessmentID:    event.AssessmentID,
		AssessedDate:    event.AssessmentDate,
		AssessedByName:  userName,
		AssessedByEmail: userEmail,
		RiskScore:       event.RiskScore,
		RiskLevel:       event.RiskLevel,
	}

	switch {
	case event.IsNew:
		entry.ScheduleType = ScheduleTypeInitial
		if note == nil || *note == "" {
			fallback := fmt.Sprintf("Initial assessment created by %s", userName)
			note = &fallback
		}
	case event.PreviousSchedule == nil:
		t.logger.WarnContext(ctx, "previous monitoring schedule unavailable, skipping timeline entry",
			slog.Int64("assessment_id", event.AssessmentID))
		return
	case strPtrEqual(event.PreviousSchedule, event.Schedule):
		return
	default:
		entry.ScheduleType = fmt.Sprintf("Schedule Update: %s", strOrEmpty(event.Schedule))
		if note == nil || *note == "" {
			fallback := fmt.Sprintf("Monitoring schedule updated from '%s' to '%s' by %s",
				strOrEmpty(event.PreviousSchedule), strOrEmpty(event.Schedule), userName)
			note = &fallback
		}
	}
	entry.Notes = note

	if err := t.store.Insert(ctx, entry); err != nil {
		t.logger.ErrorContext(ctx, "inserting timeline entry",
			slog.Int64("assessment_id", event.AssessmentID), slog.Any("error", err))
		t.logger.WarnContext(ctx, "timeline tracking failed, save continues")
	}
}

// ForStudy returns the study's timeline rows for the grid, newest first.
func (t *Tracker) ForStudy(ctx context.Context, studyID int64, limit int) ([]UIEntry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	entries, err := t.store.ForStudy(ctx, studyID, limit)
	if err != nil {
		return nil, err
	}
	ui := make([]UIEntry, 0, len(entries))
	for _, e := range entries {
		ui = append(ui, newUIEntry(e))
	}
	return ui, nil
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
