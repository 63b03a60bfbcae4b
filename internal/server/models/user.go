// Package models defines the server-side entities stored in the catalog.
package models

import "time"

// User is an account in the catalog. Identity is immutable once created;
// only the password hash may be rotated.
type User struct {
	ID           string
	Username     string
	Salt         []byte
	PasswordHash []byte
	CreatedAt    time.Time
}
