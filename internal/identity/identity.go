// Package identity carries the authenticated user through the request
// lifecycle and maps JWT claims onto application roles.
package identity

import "context"

// Role names as they appear in token claims and notification routing.
const (
	RolePrincipalInvestigator = "Principal Investigator"
	RoleStudyDirector         = "Study Director"
)

// User is the authenticated caller extracted from the access token.
type User struct {
	Name  string
	Email string
	Roles []string
}

// Role returns the user's effective role for assessment routing.
// Users without a recognized role act as Principal Investigators.
func (u User) Role() string {
	for _, r := range u.Roles {
		if r == RoleStudyDirector || r == RolePrincipalInvestigator {
			return r
		}
	}
	return RolePrincipalInvestigator
}

// IsStudyDirector reports whether the user reviews assessments.
func (u User) IsStudyDirector() bool {
	return u.Role() == RoleStudyDirector
}

type userKey struct{}

// ContextKeyUser is exported for tests that build contexts directly.
var ContextKeyUser = userKey{}

// FromContext retrieves the authenticated user from the context.
func FromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ContextKeyUser).(User)
	return u, ok
}

// WithUser injects an authenticated user into the context.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ContextKeyUser, u)
}
