package models

import "time"

// Like represents a like on a post. The (UserID, PostID) pair is the primary key,
// so a user can like a given post at most once.
type Like struct {
	UserID    string    `json:"user_id" gorm:"primaryKey" bson:"user_id"`
	User      *User     `json:"-" gorm:"foreignKey:UserID" bson:"-"`
	PostID    string    `json:"post_id" gorm:"primaryKey;index" bson:"post_id"`
	Post      *Post     `json:"-" gorm:"foreignKey:PostID" bson:"-"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// LikeEntry is one liking user together with the time of the like
type LikeEntry struct {
	User    UserCompact `json:"user"`
	LikedAt time.Time   `json:"liked_at"`
}

// LikeSummary is the aggregate like count of a post plus who liked it, oldest first
type LikeSummary struct {
	PostID string      `json:"post_id"`
	Count  int         `json:"count"`
	Likes  []LikeEntry `json:"likes"`
}
