package lemmy

// GetUnreadCountResponse is the unread inbox breakdown for the current user.
type GetUnreadCountResponse struct {
	Replies         int `json:"replies"`
	Mentions        int `json:"mentions"`
	PrivateMessages int `json:"private_messages"`
}

// Total returns replies + mentions + private messages.
func (r GetUnreadCountResponse) Total() int {
	return r.Replies + r.Mentions + r.PrivateMessages
}

// GetReportCountResponse is the open report breakdown for the communities
// (or, for admins, the site) the current user moderates.
// PrivateMessageReports is absent from older servers and for non-admins.
type GetReportCountResponse struct {
	CommunityID           *int `json:"community_id,omitempty"`
	CommentReports        int  `json:"comment_reports"`
	PostReports           int  `json:"post_reports"`
	PrivateMessageReports *int `json:"private_message_reports,omitempty"`
}

// Total returns post + comment + private message reports, with a missing
// private message count treated as zero.
func (r GetReportCountResponse) Total() int {
	total := r.PostReports + r.CommentReports
	if r.PrivateMessageReports != nil {
		total += *r.PrivateMessageReports
	}
	return total
}

// GetUnreadRegistrationApplicationCountResponse is the number of
// registration applications awaiting an admin decision.
type GetUnreadRegistrationApplicationCountResponse struct {
	RegistrationApplications int `json:"registration_applications"`
}

// Total returns the pending application count.
func (r GetUnreadRegistrationApplicationCountResponse) Total() int {
	return r.RegistrationApplications
}

// GetSiteResponse is the subset of the site response needed to know who
// the current user is.
type GetSiteResponse struct {
	MyUser *MyUserInfo `json:"my_user,omitempty"`
}

// MyUserInfo describes the logged-in user.
type MyUserInfo struct {
	LocalUserView LocalUserView            `json:"local_user_view"`
	Moderates     []CommunityModeratorView `json:"moderates"`
}

type LocalUserView struct {
	Person Person `json:"person"`
}

type Person struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Admin bool   `json:"admin"`
}

type CommunityModeratorView struct {
	Community Community `json:"community"`
	Moderator Person    `json:"moderator"`
}

type Community struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
