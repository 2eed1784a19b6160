package models

import "time"

// Comment represents a comment on a post
type Comment struct {
	ID        string    `json:"id" gorm:"primaryKey" bson:"_id"`
	PostID    string    `json:"post_id" gorm:"not null;index" bson:"post_id"`
	Post      *Post     `json:"-" gorm:"foreignKey:PostID" bson:"-"`
	UserID    string    `json:"user_id" gorm:"not null;index" bson:"user_id"`
	User      *User     `json:"-" gorm:"foreignKey:UserID" bson:"-"`
	Content   string    `json:"content" gorm:"not null" bson:"content"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=500"`
}
