package model

import "time"

// Account is a credential record held by the demo auth backend.
//
// Email is deliberately NOT unique: registering twice with the same email
// creates two accounts, and login picks the most recently created one.
type Account struct {
	ID           string    `json:"id"        db:"id"`
	Email        string    `json:"email"     db:"email"`
	Name         string    `json:"name"      db:"name"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
