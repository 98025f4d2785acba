// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Role is the account privilege level.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents an account stored on the server. Passwords are stored only as
// an encoded one-way credential.
type User struct {
	ID           uuid.UUID // PK
	Email        string    // unique, lower-cased
	PasswordHash string    // encoded credential (argon2id or legacy bcrypt)
	FirstName    string
	LastName     string
	Role         Role
	IsActive     bool
	IsVerified   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLogin    *time.Time // nil until first successful login
}

// ProfileUpdate carries optional profile changes; nil fields are left untouched.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
}

// Empty reports whether the update changes nothing.
func (p ProfileUpdate) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil
}

// Identity is the trusted caller identity produced by the auth gate.
type Identity struct {
	UserID uuid.UUID
	Role   Role
}

// IssuedToken is a signed token together with its expiry.
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Tokens collects an access/refresh pair issued at login or refresh.
type Tokens struct {
	Access  IssuedToken
	Refresh IssuedToken
}

// TransactionType distinguishes money coming in from money going out.
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

// Transaction is a single budget entry owned by a user.
type Transaction struct {
	ID          uuid.UUID
	UserID      uuid.UUID // FK -> users.id
	Description string
	Amount      float64 // > 0
	Type        TransactionType
	Category    string
	Date        time.Time // calendar date, UTC midnight
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TransactionFilter narrows a listing. Zero values mean "no constraint".
type TransactionFilter struct {
	Type     TransactionType
	Category string
	From     time.Time // inclusive
	To       time.Time // inclusive
	Limit    int
	Offset   int
}

// Summary aggregates a user's transactions.
type Summary struct {
	Income     float64
	Expense    float64
	Balance    float64
	Count      int
	ByCategory map[string]float64 // signed: income positive, expense negative
}
