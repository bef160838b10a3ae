package cashbook

import (
	"errors"
	"time"

	"github.com/frahmantamala/garment-erp/internal"
	cashbookDatamodel "github.com/frahmantamala/garment-erp/internal/core/datamodel/cashbook"
)

const DateLayout = "2006-01-02"

const (
	TypeCashIn  = "cash_in"
	TypeCashOut = "cash_out"
)

type Entry struct {
	ID          int64     `json:"id"`
	Date        string    `json:"date"`
	EntryType   string    `json:"entry_type"`
	Head        string    `json:"head"`
	Description string    `json:"description,omitempty"`
	Amount      int64     `json:"amount"`
	Reference   string    `json:"reference,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Filter narrows listings and sums. Before is exclusive and only used for
// opening balances.
type Filter struct {
	From      *time.Time
	To        *time.Time
	Before    *time.Time
	EntryType string
	Head      string
	Limit     int
	Offset    int
}

type EntryList struct {
	Entries []*Entry `json:"entries"`
	Total   int64    `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

// Totals are the summed amounts per direction.
type Totals struct {
	In  int64
	Out int64
}

type Balance struct {
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Opening  int64  `json:"opening"`
	TotalIn  int64  `json:"total_in"`
	TotalOut int64  `json:"total_out"`
	Closing  int64  `json:"closing"`
}

var ErrNotFound = errors.New("cashbook entry not found")

var ErrEntryNotFound = internal.NewNotFoundError("cashbook entry not found", internal.ErrCodeCashbookEntryNotFound)

func FromDataModel(e *cashbookDatamodel.Entry) *Entry {
	return &Entry{
		ID:          e.ID,
		Date:        e.EntryDate.UTC().Format(DateLayout),
		EntryType:   e.EntryType,
		Head:        e.Head,
		Description: e.Description,
		Amount:      e.Amount,
		Reference:   e.Reference,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func FromDataModelSlice(entries []*cashbookDatamodel.Entry) []*Entry {
	result := make([]*Entry, len(entries))
	for i, e := range entries {
		result[i] = FromDataModel(e)
	}
	return result
}
