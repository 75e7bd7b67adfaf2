package core

import (
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DefaultCategory is used whenever a transaction or budget category is blank.
const DefaultCategory = "Other"

// DateLayout is the only accepted transaction date format.
const DateLayout = "2006-01-02"

type (
	TransactionType string

	User struct {
		ID           int64
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	Transaction struct {
		ID       int64
		UserID   int64
		Amount   float64
		Type     TransactionType
		Category string
		Date     string // YYYY-MM-DD
	}

	// TransactionPatch carries the fields of a partial update. Nil fields are
	// left untouched.
	TransactionPatch struct {
		Amount   *float64
		Type     *TransactionType
		Category *string
		Date     *string
	}

	Budget struct {
		ID       int64
		UserID   int64
		Category string
		Limit    float64
	}
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// ParseTransactionType trims and lower-cases s before checking it against the enum.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}

// NormalizeEmail returns the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeCategory trims the label and falls back to DefaultCategory.
func NormalizeCategory(category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return DefaultCategory
	}
	return category
}

// Today returns the current UTC date in DateLayout.
func Today(now time.Time) string {
	return now.UTC().Format(DateLayout)
}

// NormalizeDate returns today's date for a blank value and otherwise requires
// a valid YYYY-MM-DD date.
func NormalizeDate(date string, now time.Time) (string, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return Today(now), nil
	}
	parsed, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", ErrInvalidPayload
	}
	return parsed.Format(DateLayout), nil
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.UserID <= 0 {
		return ErrInvalidInput
	}
	if !IsFinite(t.Amount) {
		return ErrInvalidPayload
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrInvalidPayload
	}
	if _, err := time.Parse(DateLayout, t.Date); err != nil {
		return ErrInvalidPayload
	}
	return nil
}

func (b Budget) Validate() error {
	if b.UserID <= 0 {
		return ErrInvalidInput
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrInvalidPayload
	}
	if b.Limit < 0 || !IsFinite(b.Limit) {
		return ErrInvalidPayload
	}
	return nil
}

// Empty reports whether the patch would change nothing.
func (p TransactionPatch) Empty() bool {
	return p.Amount == nil && p.Type == nil && p.Category == nil && p.Date == nil
}

// Apply returns a copy of t with the patch's non-nil fields written over it.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Category != nil {
		t.Category = NormalizeCategory(*p.Category)
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	return t
}
