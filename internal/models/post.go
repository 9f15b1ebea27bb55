package models

// Post is a user-authored entry. CategoryRefIDs references categories by
// refId without any foreign key; dangling entries are tolerated.
type Post struct {
	Record
	Content        string     `gorm:"type:text;not null" json:"content"`
	CategoryRefIDs StringList `gorm:"type:text" json:"categoryRefIds"`
	LikeCount      int        `gorm:"not null;default:0" json:"likeCount"`
	DislikeCount   int        `gorm:"not null;default:0" json:"dislikeCount"`
	CommentCount   int        `gorm:"not null;default:0" json:"commentCount"`
	ViewCount      int        `gorm:"not null;default:0" json:"viewCount"`
	IsAnonymous    bool       `gorm:"not null;default:false" json:"isAnonymous"`
	PhotoURL       string     `json:"photoUrl"`
}

// AuthorRefID returns the refId of the creating user, or "" when anonymous.
func (p *Post) AuthorRefID() string {
	if p.CreatedBy == nil {
		return ""
	}
	return *p.CreatedBy
}

// HasCategory reports whether the post references categoryRefID.
func (p *Post) HasCategory(categoryRefID string) bool {
	return p.CategoryRefIDs.Contains(categoryRefID)
}
