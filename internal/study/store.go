package study

import "context"

// Store reads the study roster and its assessment projections.
type Store interface {
	// GetByID returns the study regardless of status; callers that must
	// exclude inactive studies use GetActiveByID.
	GetByID(ctx context.Context, id int64) (*Study, error)
	GetActiveByID(ctx context.Context, id int64) (*Study, error)

	List(ctx context.Context) ([]Study, error)
	ListByUser(ctx context.Context, email, userType string, filter Filter) ([]Study, error)
	DropdownValues(ctx context.Context, email, userType string) (DropdownValues, error)

	AssessmentsWithContacts(ctx context.Context, email, userType string) ([]AssessmentRow, error)
	TopRiskRows(ctx context.Context) ([]RiskTableRow, error)
	HighestRiskRows(ctx context.Context, filter Filter) ([]RiskTableRow, error)
	AssessedRows(ctx context.Context, filter Filter, limit, offset int) ([]RiskTableRow, int, error)
	FilterValues(ctx context.Context) (DropdownValues, error)

	DashboardStats(ctx context.Context, email, userType string) (DashboardStats, error)
}
