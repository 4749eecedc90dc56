package user

import "time"

// User represents a registered account.
type User struct {
	ID           int64
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	CreatedAt    time.Time
}

// Registration is the input for creating an account.
type Registration struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// Update holds optional fields for a partial account edit. Password changes
// require CurrentPassword.
type Update struct {
	Email           *string
	FirstName       *string
	LastName        *string
	Password        *string
	CurrentPassword *string
}

// Session is the result of a successful login.
type Session struct {
	UserID int64
	Token  string
}
