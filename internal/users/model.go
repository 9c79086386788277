package users

import "time"

// User is a local account created from verified provider claims.
// Password holds a bcrypt placeholder only - provider-authenticated accounts
// never log in with it.
type User struct {
	ID               string
	Email            string
	Password         string
	FirstName        string
	LastName         string
	Username         string
	ProfileImage     string
	Admin            bool
	TelegramID       string
	TelegramUsername string
	TelegramLinked   bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
