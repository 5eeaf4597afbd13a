// Package models defines the persistent entities of the auth service.
package models

import "time"

// User is an account keyed by a unique email address. The profile attributes
// are carried through registration unchanged; the service itself only cares
// about Email, PasswordHash and Verified.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	DateOfBirth  time.Time
	City         string
	Country      string
	Pincode      string
	Gender       string
	Verified     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
