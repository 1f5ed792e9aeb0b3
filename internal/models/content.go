package models

import "time"

// Post moderation states.
const (
	PostStatusApproved = "approved"
	PostStatusReported = "reported"
	PostStatusFlagged  = "flagged"
	PostStatusRemoved  = "removed"
)

// Post is a feed entry authored by an end user.
type Post struct {
	ID string `gorm:"type:varchar(64);primaryKey" json:"id"`

	AuthorID   string `gorm:"type:varchar(64);not null;index" json:"authorId"`
	AuthorName string `gorm:"type:text;not null" json:"authorName"`
	University string `gorm:"type:text;not null;default:''" json:"university"`
	Content    string `gorm:"type:text;not null" json:"content"`
	ImageURL   string `gorm:"type:text" json:"imageUrl,omitempty"`

	Status      string `gorm:"type:varchar(16);not null;index" json:"status"`
	ReportCount int    `gorm:"not null;default:0" json:"reportCount"`
	Likes       int    `gorm:"not null;default:0" json:"likes"`
	Comments    int    `gorm:"not null;default:0" json:"comments"`

	ModeratedBy string    `gorm:"type:varchar(64)" json:"moderatedBy,omitempty"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime;index" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

// Group is a community of end users, usually scoped to a university.
type Group struct {
	ID string `gorm:"type:varchar(64);primaryKey" json:"id"`

	Name        string `gorm:"type:text;not null" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	University  string `gorm:"type:text;not null;default:''" json:"university"`
	Category    string `gorm:"type:varchar(32)" json:"category,omitempty"`
	MemberCount int    `gorm:"not null;default:0" json:"memberCount"`
	IsPrivate   bool   `gorm:"not null;default:false" json:"isPrivate"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

// TableName avoids the GROUPS keyword in SQL dialects that reserve it.
func (Group) TableName() string { return "community_groups" }
