package dto

import (
	"github.com/shopspring/decimal"
)

// CreateExpenseRequest is the body of POST /api/expense.
// Any owner field sent by the caller is not part of the contract and is dropped.
type CreateExpenseRequest struct {
	Title       string           `json:"title"`
	Description *string          `json:"description,omitempty"`
	Amount      *decimal.Decimal `json:"amount"`
	Category    string           `json:"category"`
}

// UpdateExpenseRequest is the body of PUT /api/expense/{id}.
// Absent fields are left untouched.
type UpdateExpenseRequest struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Category    *string          `json:"category,omitempty"`
}
