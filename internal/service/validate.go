package service

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 100
	maxEmailLength    = 255
	minPasswordLength = 6
	maxPasswordLength = 18
	maxTitleLength    = 255
	minCategoryLength = 3
	maxCategoryLength = 100
	amountPlaces      = 2
)

// maxAmount is the largest value the NUMERIC(14,2) amount column holds.
var maxAmount = decimal.RequireFromString("999999999999.99")

func validateUsername(raw string) (string, error) {
	username := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(username)
	if n < minUsernameLength {
		return "", invalid("username", "must be at least 3 characters")
	}
	if n > maxUsernameLength {
		return "", invalid("username", "must be at most 100 characters")
	}
	return username, nil
}

func validateEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", invalid("email", "is required")
	}
	if len(email) > maxEmailLength {
		return "", invalid("email", "is too long")
	}
	// Reject display-name forms such as "Bob <bob@example.com>".
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return "", invalid("email", "must be a valid email address")
	}
	return email, nil
}

func validatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLength {
		return invalid("password", "must be at least 6 characters")
	}
	if n > maxPasswordLength {
		return invalid("password", "must be at most 18 characters")
	}
	return nil
}

func validateTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", invalid("title", "is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", invalid("title", "must be at most 255 characters")
	}
	return title, nil
}

func validateCategory(raw string) (string, error) {
	category := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(category)
	if n < minCategoryLength {
		return "", invalid("category", "must be at least 3 characters")
	}
	if n > maxCategoryLength {
		return "", invalid("category", "must be at most 100 characters")
	}
	return category, nil
}

// validateAmount rounds to cents before checking positivity, so 0.001 is rejected.
func validateAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	rounded := amount.Round(amountPlaces)
	if !rounded.IsPositive() {
		return decimal.Zero, invalid("amount", "must be greater than 0")
	}
	if rounded.GreaterThan(maxAmount) {
		return decimal.Zero, invalid("amount", "must be at most 999999999999.99")
	}
	return rounded, nil
}

// normalizeDescription trims the description and maps blank to nil.
func normalizeDescription(raw *string) *string {
	if raw == nil {
		return nil
	}
	d := strings.TrimSpace(*raw)
	if d == "" {
		return nil
	}
	return &d
}
