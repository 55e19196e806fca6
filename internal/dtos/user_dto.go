package dtos

import "mime/multipart"

type RegisterRequest struct {
	Name     string `json:"name" form:"name" binding:"required"`
	LastName string `json:"lastName" form:"lastName" binding:"required"`
	Location string `json:"location" form:"location" binding:"required"`
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
}

// ProfileRequest is the profile form. It is posted as multipart because of the avatar.
type ProfileRequest struct {
	Name     string                `form:"name" binding:"required"`
	LastName string                `form:"lastName" binding:"required"`
	Email    string                `form:"email" binding:"required,email"`
	Location string                `form:"location" binding:"required"`
	Avatar   *multipart.FileHeader `form:"avatar"`
}

// MaxAvatarSize is the largest avatar the profile form accepts.
const MaxAvatarSize = 500 * 1024
