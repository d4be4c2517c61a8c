package service

import (
	"context"
	"fmt"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/apperrors"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/repository"
)

// ShareholderSource yields the shareholders of an SPV in a uniform shape.
// A source that has no rows for the SPV returns an empty slice.
type ShareholderSource interface {
	Name() string
	Shareholders(ctx context.Context, spv model.SPV) ([]model.Shareholder, error)
}

type ledgerSource struct {
	repo *repository.ShareLedgerRepository
}

// NewLedgerSource reads shareholders from the share ledger for the SPV's
// current project.
func NewLedgerSource(repo *repository.ShareLedgerRepository) ShareholderSource {
	return ledgerSource{repo: repo}
}

func (s ledgerSource) Name() string { return "share_ledger" }

func (s ledgerSource) Shareholders(ctx context.Context, spv model.SPV) ([]model.Shareholder, error) {
	return s.repo.ListShareholders(ctx, spv.ID, spv.ProjectID)
}

type capTableSource struct {
	repo *repository.CapTableRepository
}

// NewCapTableSource reads shareholders from the legacy cap table.
func NewCapTableSource(repo *repository.CapTableRepository) ShareholderSource {
	return capTableSource{repo: repo}
}

func (s capTableSource) Name() string { return "cap_table" }

func (s capTableSource) Shareholders(ctx context.Context, spv model.SPV) ([]model.Shareholder, error) {
	return s.repo.ListShareholders(ctx, spv.ID)
}

// loadShareholders asks each source in order and keeps the first non-empty
// answer. Rows whose investor could not be resolved are tolerated only in
// the sense of being diagnosed: if every row dangles the SPV has no
// shareholders, otherwise the data is invalid.
func loadShareholders(ctx context.Context, sources []ShareholderSource, spv model.SPV) ([]model.Shareholder, string, error) {
	for _, src := range sources {
		holders, err := src.Shareholders(ctx, spv)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %w", src.Name(), err)
		}
		if len(holders) == 0 {
			continue
		}

		dangling := 0
		var totalShares int64
		for _, h := range holders {
			if h.InvestorID == "" {
				dangling++
			}
			totalShares += h.NumberOfShares
		}
		switch {
		case dangling == len(holders):
			return nil, "", fmt.Errorf("%w: %s rows reference no live investor", apperrors.ErrNoShareholders, src.Name())
		case dangling > 0:
			return nil, "", fmt.Errorf("%w: %d %s rows reference no live investor", apperrors.ErrInvalidInvestorData, dangling, src.Name())
		case totalShares <= 0:
			return nil, "", fmt.Errorf("%w: %s holds no shares", apperrors.ErrNoShareholders, src.Name())
		}
		return holders, src.Name(), nil
	}
	return nil, "", apperrors.ErrNoShareholders
}
