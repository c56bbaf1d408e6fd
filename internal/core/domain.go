package core

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxNameLength        = 100
	MaxEmailLength       = 254
	MaxDescriptionLength = 1000
)

type (
	User struct {
		ID        int64
		Name      string
		Email     string // empty when the user has no email
		CreatedAt time.Time
	}

	Category struct {
		ID        int64
		Name      string
		CreatedAt time.Time
	}

	Expense struct {
		ID           int64
		UserID       int64
		CategoryID   int64
		CategoryName string // filled on reads only
		Amount       Money
		Description  string
		SpentAt      time.Time
		CreatedAt    time.Time
	}
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrAmountTooLarge = errors.New("amount has too many digits")
	ErrInvalidMonth   = errors.New("month must be 1-12")

	ErrTooManyDecimals    = errors.New("amount has too many decimal places")
	ErrTooManyWholeDigits = errors.New("amount has too many digits before the decimal point")
)

// Normalize trims user supplied text fields in place.
func (u *User) Normalize() {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.TrimSpace(u.Email)
}

func (u User) Validate() error {
	verr := ValidationError{}
	validateName(verr, "name", u.Name)
	if u.Email != "" {
		if utf8.RuneCountInString(u.Email) > MaxEmailLength {
			verr.Add("email", "Ensure this field has no more than 254 characters.")
		} else if addr, err := mail.ParseAddress(u.Email); err != nil || addr.Address != u.Email {
			verr.Add("email", "Enter a valid email address.")
		}
	}
	return verr.Err()
}

func (c *Category) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
}

func (c Category) Validate() error {
	verr := ValidationError{}
	validateName(verr, "name", c.Name)
	return verr.Err()
}

func (e *Expense) Normalize() {
	e.Description = strings.TrimSpace(e.Description)
	if !e.SpentAt.IsZero() {
		e.SpentAt = e.SpentAt.UTC()
	}
}

func (e Expense) Validate() error {
	verr := ValidationError{}
	if err := e.Amount.Validate(); err != nil {
		verr.Add("amount", AmountMessage(err))
	}
	if utf8.RuneCountInString(e.Description) > MaxDescriptionLength {
		verr.Add("description", "Ensure this field has no more than 1000 characters.")
	}
	return verr.Err()
}

func validateName(verr ValidationError, field, name string) {
	switch {
	case name == "":
		verr.Add(field, "This field may not be blank.")
	case utf8.RuneCountInString(name) > MaxNameLength:
		verr.Add(field, "Ensure this field has no more than 100 characters.")
	}
}

// ValidatePeriod checks a calendar year/month pair used by reports. Any
// year is accepted; one without expenses yields an empty summary.
func ValidatePeriod(year, month int) error {
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}
