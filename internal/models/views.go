package models

// CategorySummary is the category projection embedded in post views.
type CategorySummary struct {
	RefID       string `json:"refId"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UserSummary is the author projection embedded in post views.
type UserSummary struct {
	RefID           string `json:"refId"`
	Username        string `json:"username"`
	ProfilePhotoURL string `json:"profilePhotoUrl"`
}

// PostWithRelations is a post with its references resolved. Categories that
// no longer resolve are omitted; an unresolved author is reported as nil.
type PostWithRelations struct {
	*Post
	Categories []CategorySummary `json:"categories"`
	User       *UserSummary      `json:"user"`
}

// PostList wraps feed results.
type PostList struct {
	Posts []*Post `json:"posts"`
}
