// Package report builds read-only summaries straight from SQL.
package report

import "time"

type Range struct {
	From *time.Time
	To   *time.Time
}

type DepartmentSummary struct {
	Department  string  `db:"department" json:"department"`
	Entries     int64   `db:"entries" json:"entries"`
	TargetQty   int64   `db:"target_qty" json:"target_qty"`
	ProducedQty int64   `db:"produced_qty" json:"produced_qty"`
	RejectedQty int64   `db:"rejected_qty" json:"rejected_qty"`
	Efficiency  float64 `db:"-" json:"efficiency"`
	RejectRate  float64 `db:"-" json:"reject_rate"`
}

type ProductionSummary struct {
	From        string               `json:"from,omitempty"`
	To          string               `json:"to,omitempty"`
	Departments []*DepartmentSummary `json:"departments"`
	Total       DepartmentSummary    `json:"total"`
}

type HeadSummary struct {
	Head    string `db:"head" json:"head"`
	CashIn  int64  `db:"cash_in" json:"cash_in"`
	CashOut int64  `db:"cash_out" json:"cash_out"`
	Net     int64  `db:"-" json:"net"`
}

type CashbookSummary struct {
	From  string         `json:"from,omitempty"`
	To    string         `json:"to,omitempty"`
	Heads []*HeadSummary `json:"heads"`
	Total HeadSummary    `json:"total"`
}
