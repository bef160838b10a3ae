package cashbook

import (
	"strings"
	"time"

	"github.com/frahmantamala/garment-erp/internal"
	"github.com/frahmantamala/garment-erp/internal/core/common/validation"
)

type CreateEntryDTO struct {
	Date        string `json:"date"`
	EntryType   string `json:"entry_type"`
	Head        string `json:"head"`
	Description string `json:"description,omitempty"`
	Amount      int64  `json:"amount"`
	Reference   string `json:"reference,omitempty"`
}

func (d CreateEntryDTO) Validate(now time.Time) (time.Time, error) {
	date, dateErr := ParseDate(d.Date)

	v := validation.NewValidator()
	entryRules(v, d.EntryType, d.Head, d.Amount)
	v.Field("description", d.Description).MaxLength(1000)
	v.Field("reference", d.Reference).MaxLength(128)
	if dateErr != nil {
		v.Field("date", d.Date).Custom(func(interface{}) *internal.AppError { return dateErr })
	} else {
		v.Field("date", date).NotAfter(endOfDay(now))
	}
	return date, v.Err()
}

type UpdateEntryDTO struct {
	Date        *string `json:"date,omitempty"`
	EntryType   *string `json:"entry_type,omitempty"`
	Head        *string `json:"head,omitempty"`
	Description *string `json:"description,omitempty"`
	Amount      *int64  `json:"amount,omitempty"`
	Reference   *string `json:"reference,omitempty"`
}

// ParseDate reads a YYYY-MM-DD date as UTC midnight.
func ParseDate(raw string) (time.Time, *internal.AppError) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, internal.NewValidationFieldError("date", "date is required", internal.ErrCodeValidationFailed)
	}
	t, err := time.ParseInLocation(DateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, internal.NewValidationFieldError("date", "date must be formatted as YYYY-MM-DD", internal.ErrCodeInvalidDate)
	}
	return t, nil
}

func entryRules(v *validation.ValidationBuilder, entryType, head string, amount int64) {
	v.Field("entry_type", entryType).
		Required().
		OneOf(internal.ErrCodeInvalidEntryType, TypeCashIn, TypeCashOut)
	v.Field("head", head).Required().MaxLength(64)
	v.Field("amount", amount).MinInt(1, internal.ErrCodeInvalidAmount)
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 23, 59, 59, 0, time.UTC)
}
