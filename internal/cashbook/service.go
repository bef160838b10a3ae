package cashbook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/garment-erp/internal"
	"github.com/frahmantamala/garment-erp/internal/auth"
	cashbookDatamodel "github.com/frahmantamala/garment-erp/internal/core/datamodel/cashbook"
	"github.com/frahmantamala/garment-erp/internal/core/common/validation"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type RepositoryAPI interface {
	Create(ctx context.Context, e *cashbookDatamodel.Entry) error
	GetByID(ctx context.Context, id int64) (*cashbookDatamodel.Entry, error)
	List(ctx context.Context, filter Filter) ([]*cashbookDatamodel.Entry, int64, error)
	Totals(ctx context.Context, filter Filter) (Totals, error)
	Update(ctx context.Context, e *cashbookDatamodel.Entry) error
	Delete(ctx context.Context, id int64) error
}

// Service keeps the cash ledger. Access control happens at the route.
type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) CreateEntry(ctx context.Context, actor *auth.User, dto CreateEntryDTO) (*Entry, error) {
	dto.EntryType = strings.ToLower(strings.TrimSpace(dto.EntryType))
	dto.Head = strings.TrimSpace(dto.Head)

	date, err := dto.Validate(s.now())
	if err != nil {
		return nil, err
	}

	row := &cashbookDatamodel.Entry{
		EntryDate:   date,
		EntryType:   dto.EntryType,
		Head:        dto.Head,
		Description: strings.TrimSpace(dto.Description),
		Amount:      dto.Amount,
		Reference:   strings.TrimSpace(dto.Reference),
		CreatedBy:   actor.ID,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.ErrorContext(ctx, "failed to create cashbook entry", "user_id", actor.ID, "error", err)
		return nil, fmt.Errorf("failed to create cashbook entry: %w", err)
	}

	s.logger.InfoContext(ctx, "cashbook entry created",
		"entry_id", row.ID,
		"entry_type", row.EntryType,
		"amount", row.Amount,
		"user_id", actor.ID)
	return FromDataModel(row), nil
}

func (s *Service) GetEntry(ctx context.Context, id int64) (*Entry, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(row), nil
}

func (s *Service) ListEntries(ctx context.Context, filter Filter) (*EntryList, error) {
	if filter.Limit <= 0 || filter.Limit > MaxListLimit {
		filter.Limit = DefaultListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	filter.Before = nil

	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list cashbook entries", "error", err)
		return nil, fmt.Errorf("failed to list cashbook entries: %w", err)
	}
	return &EntryList{
		Entries: FromDataModelSlice(rows),
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

func (s *Service) UpdateEntry(ctx context.Context, actor *auth.User, id int64, dto UpdateEntryDTO) (*Entry, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.Date != nil {
		date, appErr := ParseDate(*dto.Date)
		if appErr != nil {
			return nil, appErr
		}
		row.EntryDate = date
	}
	if dto.EntryType != nil {
		row.EntryType = strings.ToLower(strings.TrimSpace(*dto.EntryType))
	}
	if dto.Head != nil {
		row.Head = strings.TrimSpace(*dto.Head)
	}
	if dto.Description != nil {
		row.Description = strings.TrimSpace(*dto.Description)
	}
	if dto.Amount != nil {
		row.Amount = *dto.Amount
	}
	if dto.Reference != nil {
		row.Reference = strings.TrimSpace(*dto.Reference)
	}

	v := validation.NewValidator()
	entryRules(v, row.EntryType, row.Head, row.Amount)
	v.Field("date", row.EntryDate).NotAfter(endOfDay(s.now()))
	if err := v.Err(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, row); err != nil {
		s.logger.ErrorContext(ctx, "failed to update cashbook entry", "entry_id", id, "error", err)
		return nil, fmt.Errorf("failed to update cashbook entry: %w", err)
	}

	s.logger.InfoContext(ctx, "cashbook entry updated", "entry_id", id, "user_id", actor.ID)
	return FromDataModel(row), nil
}

func (s *Service) DeleteEntry(ctx context.Context, actor *auth.User, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrEntryNotFound
		}
		s.logger.ErrorContext(ctx, "failed to delete cashbook entry", "entry_id", id, "error", err)
		return fmt.Errorf("failed to delete cashbook entry: %w", err)
	}
	s.logger.InfoContext(ctx, "cashbook entry deleted", "entry_id", id, "user_id", actor.ID)
	return nil
}

// Balance sums the ledger between from and to, both inclusive. Opening is
// everything recorded before from, or zero when from is open.
func (s *Service) Balance(ctx context.Context, from, to *time.Time) (*Balance, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, internal.NewValidationFieldError("to", "to must not be before from", internal.ErrCodeInvalidDate)
	}

	var opening Totals
	if from != nil {
		var err error
		opening, err = s.repo.Totals(ctx, Filter{Before: from})
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to sum opening balance", "error", err)
			return nil, fmt.Errorf("failed to compute balance: %w", err)
		}
	}

	period, err := s.repo.Totals(ctx, Filter{From: from, To: to})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to sum cashbook period", "error", err)
		return nil, fmt.Errorf("failed to compute balance: %w", err)
	}

	b := &Balance{
		Opening:  opening.In - opening.Out,
		TotalIn:  period.In,
		TotalOut: period.Out,
	}
	b.Closing = b.Opening + b.TotalIn - b.TotalOut
	if from != nil {
		b.From = from.UTC().Format(DateLayout)
	}
	if to != nil {
		b.To = to.UTC().Format(DateLayout)
	}
	return b, nil
}

func (s *Service) load(ctx context.Context, id int64) (*cashbookDatamodel.Entry, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		s.logger.ErrorContext(ctx, "failed to get cashbook entry", "entry_id", id, "error", err)
		return nil, fmt.Errorf("failed to get cashbook entry: %w", err)
	}
	return row, nil
}
