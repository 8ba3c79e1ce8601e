package inbox

import "github.com/grovetools/inbox/pkg/session"

// Role is the caller's standing on the instance, as far as unread counts go.
type Role int

const (
	RoleAnonymous Role = iota
	RoleUser
	RoleModerator
	RoleAdmin
)

// String returns the role name used in logs.
func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleModerator:
		return "moderator"
	case RoleAdmin:
		return "admin"
	}
	return "anonymous"
}

// RoleOf classifies a session. Admins rank above moderators.
func RoleOf(s session.Snapshot) Role {
	switch {
	case !s.LoggedIn():
		return RoleAnonymous
	case s.IsAdmin():
		return RoleAdmin
	case s.IsModerator():
		return RoleModerator
	}
	return RoleUser
}

// Source is one of the independently fetched unread counts.
type Source string

const (
	SourceInbox        Source = "inbox"
	SourceReports      Source = "reports"
	SourceApplications Source = "applications"
)

// Sources is an ordered set of sources.
type Sources []Source

// Has reports whether src is in the set.
func (ss Sources) Has(src Source) bool {
	for _, s := range ss {
		if s == src {
			return true
		}
	}
	return false
}

// plans lists, per role, the sources refreshed each cycle in fetch order.
var plans = map[Role]Sources{
	RoleAnonymous: nil,
	RoleUser:      {SourceInbox},
	RoleModerator: {SourceInbox, SourceReports},
	RoleAdmin:     {SourceInbox, SourceReports, SourceApplications},
}

// Plan returns the sources a fetch cycle refreshes for role.
func Plan(r Role) Sources {
	return plans[r]
}
