package model

// Post is a single entry in the feed as returned by the remote posts API.
type Post struct {
	ID          int64
	Username    string
	UserID      int64
	ImageURL    string
	Description string
	Likes       int
}

// Story is an ephemeral image shown in the stories strip.
type Story struct {
	ID       int64
	Username string
	ImageURL string
}
