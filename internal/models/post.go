package models

import (
	"time"
)

// Post represents a social media post. Posts are owned by their author and carry
// their comments and likes as separate rows keyed by PostID.
type Post struct {
	ID        string    `json:"id" gorm:"primaryKey" bson:"_id"`
	Content   string    `json:"content" gorm:"not null" bson:"content"`
	ImageURL  *string   `json:"image_url,omitempty" bson:"image_url,omitempty"`
	AuthorID  string    `json:"author_id" gorm:"not null;index" bson:"author_id"`
	Author    *User     `json:"-" gorm:"foreignKey:AuthorID" bson:"-"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;index:idx_posts_created_at,sort:desc" bson:"created_at"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Content  string  `json:"content" validate:"required,min=1,max=280"`
	ImageURL *string `json:"image_url,omitempty" validate:"omitempty,url"`
}

// UploadURLRequest defines the request body for obtaining a signed image upload URL
type UploadURLRequest struct {
	FileName string `json:"file_name" validate:"required,max=200"`
	MimeType string `json:"mime_type" validate:"required"`
}
