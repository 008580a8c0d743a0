package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Expense is a single spending record owned by one user.
type Expense struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"userId"`
	Title       string          `json:"title"`
	Description *string         `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// OwnedBy reports whether the expense belongs to the given user.
func (e *Expense) OwnedBy(userID uuid.UUID) bool {
	return e.UserID == userID
}

// DescriptionOrEmpty returns the description, or "" when unset.
func (e *Expense) DescriptionOrEmpty() string {
	if e.Description == nil {
		return ""
	}
	return *e.Description
}
