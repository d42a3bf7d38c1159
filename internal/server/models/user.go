// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account that owns refresh tokens and activity items.
type User struct {
	ID           string
	Email        string
	UserName     string
	FullName     *string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}

// DisplayName returns the first non-empty of full name, user name and email.
func (u *User) DisplayName() string {
	if u.FullName != nil && *u.FullName != "" {
		return *u.FullName
	}
	if u.UserName != "" {
		return u.UserName
	}
	return u.Email
}
