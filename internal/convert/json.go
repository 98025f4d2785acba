// Package convert maps domain models to and from the JSON wire shapes of the HTTP API.
package convert

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/and161185/budget-tracker/internal/model"
	"github.com/and161185/budget-tracker/internal/service"
)

// DateLayout is the wire format of transaction dates.
const DateLayout = "2006-01-02"

// TokenType is reported in every token response.
const TokenType = "bearer"

// --- Requests (client -> server) ---

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=6,max=128"`
	FirstName string `json:"first_name" validate:"required,min=2,max=50"`
	LastName  string `json:"last_name" validate:"required,min=2,max=50"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,max=1024"`
}

type ProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=2,max=50"`
	LastName  *string `json:"last_name" validate:"omitempty,min=2,max=50"`
	Email     *string `json:"email" validate:"omitempty,email,max=254"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,max=128"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=128"`
}

type SetActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

type TransactionRequest struct {
	Description     string  `json:"description" validate:"required,max=255"`
	Amount          float64 `json:"amount" validate:"gt=0"`
	Type            string  `json:"type" validate:"required,oneof=income expense"`
	Category        string  `json:"category" validate:"required,max=100"`
	TransactionDate string  `json:"transaction_date" validate:"required,datetime=2006-01-02"`
}

// --- Responses (server -> client) ---

type UserResponse struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Role       string     `json:"role"`
	IsActive   bool       `json:"is_active"`
	IsVerified bool       `json:"is_verified"`
	CreatedAt  time.Time  `json:"created_at"`
	LastLogin  *time.Time `json:"last_login"`
}

type TokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int64         `json:"expires_in"`
	User         *UserResponse `json:"user,omitempty"`
}

type TransactionResponse struct {
	ID              string    `json:"id"`
	Description     string    `json:"description"`
	Amount          float64   `json:"amount"`
	Type            string    `json:"type"`
	Category        string    `json:"category"`
	TransactionDate string    `json:"transaction_date"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}

type SummaryResponse struct {
	Income     float64            `json:"income"`
	Expense    float64            `json:"expense"`
	Balance    float64            `json:"balance"`
	Count      int                `json:"count"`
	ByCategory map[string]float64 `json:"by_category"`
}

// ToUserResponse hides the credential and internal timestamps.
func ToUserResponse(u model.User) UserResponse {
	return UserResponse{
		ID:         u.ID.String(),
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Role:       string(u.Role),
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
		LastLogin:  u.LastLogin,
	}
}

// ToTokenResponse reports expires_in as the configured access lifetime in whole seconds.
// u may be nil.
func ToTokenResponse(t model.Tokens, accessTTL time.Duration, u *model.User) TokenResponse {
	tr := TokenResponse{
		AccessToken:  t.Access.Value,
		RefreshToken: t.Refresh.Value,
		TokenType:    TokenType,
		ExpiresIn:    int64(accessTTL / time.Second),
	}
	if u != nil {
		ur := ToUserResponse(*u)
		tr.User = &ur
	}
	return tr
}

func ToTransactionResponse(t model.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              t.ID.String(),
		Description:     t.Description,
		Amount:          t.Amount,
		Type:            string(t.Type),
		Category:        t.Category,
		TransactionDate: t.Date.Format(DateLayout),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// ToTransactionList never returns a nil slice so the list encodes as [].
func ToTransactionList(ts []model.Transaction) TransactionListResponse {
	out := make([]TransactionResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, ToTransactionResponse(t))
	}
	return TransactionListResponse{Transactions: out}
}

func ToSummaryResponse(s model.Summary) SummaryResponse {
	by := s.ByCategory
	if by == nil {
		by = map[string]float64{}
	}
	return SummaryResponse{
		Income:     s.Income,
		Expense:    s.Expense,
		Balance:    s.Balance,
		Count:      s.Count,
		ByCategory: by,
	}
}

// --- Request -> domain ---

func (r RegisterRequest) Input() service.RegisterInput {
	return service.RegisterInput{Email: r.Email, Password: r.Password, FirstName: r.FirstName, LastName: r.LastName}
}

func (r ProfileRequest) Update() model.ProfileUpdate {
	return model.ProfileUpdate{FirstName: r.FirstName, LastName: r.LastName, Email: r.Email}
}

// Input parses the request date; other fields are checked by the service.
func (r TransactionRequest) Input() (service.TransactionInput, error) {
	d, err := time.Parse(DateLayout, r.TransactionDate)
	if err != nil {
		return service.TransactionInput{}, fmt.Errorf("invalid transaction_date: %w", err)
	}
	return service.TransactionInput{
		Description: r.Description,
		Amount:      r.Amount,
		Type:        model.TransactionType(r.Type),
		Category:    r.Category,
		Date:        d,
	}, nil
}

// FilterFromQuery reads type, category, from, to, limit and offset.
func FilterFromQuery(q url.Values) (model.TransactionFilter, error) {
	f := model.TransactionFilter{
		Type:     model.TransactionType(q.Get("type")),
		Category: q.Get("category"),
	}
	var err error
	if v := q.Get("from"); v != "" {
		if f.From, err = time.Parse(DateLayout, v); err != nil {
			return f, fmt.Errorf("invalid from: %w", err)
		}
	}
	if v := q.Get("to"); v != "" {
		if f.To, err = time.Parse(DateLayout, v); err != nil {
			return f, fmt.Errorf("invalid to: %w", err)
		}
	}
	if v := q.Get("limit"); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil {
			return f, fmt.Errorf("invalid limit: %w", err)
		}
	}
	if v := q.Get("offset"); v != "" {
		if f.Offset, err = strconv.Atoi(v); err != nil {
			return f, fmt.Errorf("invalid offset: %w", err)
		}
	}
	return f, nil
}
