// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

// LoginViewModel holds the data for the login entry point.
type LoginViewModel struct {
	CSRFToken string
	Username  string
	Error     string
}

// ShellViewModel holds the data for the protected page shell, rendered while
// the session decision is still pending.
type ShellViewModel struct {
	CSRFToken    string
	FragmentPath string
}

// TimelineViewModel holds presentation-ready data for the guarded feed fragment.
type TimelineViewModel struct {
	Viewer       string
	Stories      []StoryCardViewModel
	Posts        []PostCardViewModel
	StoriesError string
	PostsError   string
}

// HasContent reports whether anything besides error panels will render.
func (t TimelineViewModel) HasContent() bool {
	return len(t.Stories) > 0 || len(t.Posts) > 0
}

// IsEmpty reports whether the fragment has neither content nor error panels.
func (t TimelineViewModel) IsEmpty() bool {
	return !t.HasContent() && t.StoriesError == "" && t.PostsError == ""
}

// StoryCardViewModel holds presentation-ready data for one story avatar.
type StoryCardViewModel struct {
	ID       int64
	Username string
	ImageURL string // empty when the remote URL is not http(s)
}

// PostCardViewModel holds presentation-ready data for one post card.
type PostCardViewModel struct {
	ID              int64
	Username        string
	ImageURL        string // empty when the remote URL is not http(s)
	DescriptionHTML string // sanitized
	LikesLabel      string
}
