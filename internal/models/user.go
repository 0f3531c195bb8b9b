package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	UserID           string    `bun:"user_id,pk" json:"user_id"`
	Username         string    `bun:"username,notnull" json:"username"`
	Email            string    `bun:"email,unique,notnull" json:"email"`
	Password         string    `bun:"password,notnull" json:"-"`
	FirstName        string    `bun:"first_name,nullzero" json:"first_name,omitempty"`
	LastName         string    `bun:"last_name,nullzero" json:"last_name,omitempty"`
	PhoneNumber      string    `bun:"phone_number,nullzero" json:"phone_number,omitempty"`
	RegistrationDate time.Time `bun:"registration_date,notnull,default:current_timestamp" json:"registration_date"`
}

type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserProfile is the safe subset of User returned by the auth endpoints.
type UserProfile struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

func (u *User) Profile() UserProfile {
	return UserProfile{
		UserID:      u.UserID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		PhoneNumber: u.PhoneNumber,
	}
}
