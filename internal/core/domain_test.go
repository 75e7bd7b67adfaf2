package core

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"
)

func TestParseTransactionType(t *testing.T) {
	cases := []struct {
		in   string
		want TransactionType
		ok   bool
	}{
		{"income", Income, true},
		{"expense", Expense, true},
		{" Expense ", Expense, true},
		{"savings", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseTransactionType(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
			}
		} else if !errors.Is(err, ErrInvalidType) {
			t.Fatalf("%q expected ErrInvalidType, got %v", tc.in, err)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeCategory(t *testing.T) {
	cases := map[string]string{
		"":       DefaultCategory,
		"   ":    DefaultCategory,
		" Food ": "Food",
		"Rent":   "Rent",
	}
	for in, want := range cases {
		if got := NormalizeCategory(in); got != want {
			t.Fatalf("NormalizeCategory(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeDate(t *testing.T) {
	now := time.Date(2024, 3, 9, 23, 30, 0, 0, time.FixedZone("UTC-5", -5*3600))

	got, err := NormalizeDate("", now)
	if err != nil || got != "2024-03-10" {
		t.Fatalf("blank date: got %q (err=%v), want UTC date 2024-03-10", got, err)
	}

	got, err = NormalizeDate(" 2024-01-02 ", now)
	if err != nil || got != "2024-01-02" {
		t.Fatalf("explicit date: got %q (err=%v)", got, err)
	}

	for _, bad := range []string{"02/01/2024", "2024-13-01", "yesterday"} {
		if _, err := NormalizeDate(bad, now); !errors.Is(err, ErrInvalidPayload) {
			t.Fatalf("%q expected ErrInvalidPayload, got %v", bad, err)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{UserID: 1, Amount: 10, Type: Income, Category: "Salary", Date: "2024-01-01"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{UserID: 1, Amount: 10, Type: "savings", Category: "x", Date: "2024-01-01"},
		{UserID: 0, Amount: 10, Type: Income, Category: "x", Date: "2024-01-01"},
		{UserID: 1, Amount: 10, Type: Income, Category: " ", Date: "2024-01-01"},
		{UserID: 1, Amount: 10, Type: Income, Category: "x", Date: "01-01-2024"},
		{UserID: 1, Amount: math.Inf(1), Type: Income, Category: "x", Date: "2024-01-01"},
		{UserID: 1, Amount: math.NaN(), Type: Income, Category: "x", Date: "2024-01-01"},
	}
	for i, tr := range bads {
		if err := tr.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestBudgetValidate(t *testing.T) {
	if err := (Budget{UserID: 1, Category: "Food", Limit: 0}).Validate(); err != nil {
		t.Fatalf("zero limit should be valid: %v", err)
	}
	if err := (Budget{UserID: 1, Category: "Food", Limit: -1}).Validate(); err == nil {
		t.Fatalf("expected error for negative limit")
	}
	if err := (Budget{UserID: 1, Category: "Food", Limit: math.Inf(1)}).Validate(); err == nil {
		t.Fatalf("expected error for infinite limit")
	}
}

func TestTransactionPatchApply(t *testing.T) {
	base := Transaction{ID: 7, UserID: 1, Amount: 5, Type: Expense, Category: "Food", Date: "2024-01-01"}

	if !(TransactionPatch{}).Empty() {
		t.Fatalf("zero patch should be empty")
	}
	if got := (TransactionPatch{}).Apply(base); got != base {
		t.Fatalf("empty patch changed transaction: %+v", got)
	}

	amount := 9.5
	category := "  "
	got := TransactionPatch{Amount: &amount, Category: &category}.Apply(base)
	if got.Amount != 9.5 || got.Category != DefaultCategory || got.Type != Expense || got.Date != "2024-01-01" {
		t.Fatalf("unexpected patch result: %+v", got)
	}
}

func TestErrorKind(t *testing.T) {
	cases := map[error]string{
		ErrInvalidInput:                        "InvalidInput",
		ErrInvalidPayload:                      "InvalidPayload",
		ErrInvalidType:                         "InvalidType",
		ErrDuplicateIdentity:                   "DuplicateIdentity",
		ErrInvalidCredentials:                  "InvalidCredentials",
		ErrUnauthorized:                        "Unauthorized",
		ErrForbidden:                           "Forbidden",
		ErrNotFound:                            "NotFound",
		fmt.Errorf("update: %w", ErrForbidden): "Forbidden",
		errors.New("disk full"):                "InternalError",
	}
	for err, want := range cases {
		if got := ErrorKind(err); got != want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", err, got, want)
		}
	}
}
