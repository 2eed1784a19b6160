package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User is owned by the identity service. The content backend only reads users to
// resolve foreign keys and to display who liked a post.
type User struct {
	ID              string    `json:"id" gorm:"primaryKey" bson:"_id"`
	Name            string    `json:"name" bson:"name"`
	ProfileImageURL string    `json:"profile_image_url,omitempty" bson:"profile_image_url,omitempty"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
}

// UserCompact is the public subset of a user shown next to content
type UserCompact struct {
	ID              string `json:"id"`
	Name            string `json:"name,omitempty"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{
		ID:              u.ID,
		Name:            u.Name,
		ProfileImageURL: u.ProfileImageURL,
	}
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
