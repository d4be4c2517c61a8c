package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/apperrors"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/secret"
)

// BankAccountRepository reads and writes investor payout accounts.
// Account numbers are encrypted at rest with the configured box.
type BankAccountRepository struct {
	db  *sql.DB
	box *secret.Box
}

// NewBankAccountRepository creates a new BankAccountRepository.
func NewBankAccountRepository(db *sql.DB, box *secret.Box) *BankAccountRepository {
	return &BankAccountRepository{db: db, box: box}
}

// GetActiveBankDetails returns the investor's most recent active account with
// the account number decrypted. Returns ErrBankDetailsNotFound if there is none.
func (r *BankAccountRepository) GetActiveBankDetails(ctx context.Context, investorID string) (model.BankDetails, error) {
	query := `
		SELECT investor_id, account_number_encrypted, ifsc, account_holder_name, bank_name
		FROM bank_account
		WHERE investor_id = ? AND is_active = 1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var d model.BankDetails
	var encrypted string

	err := r.db.QueryRowContext(ctx, query, investorID).Scan(
		&d.InvestorID,
		&encrypted,
		&d.IFSC,
		&d.AccountHolderName,
		&d.BankName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BankDetails{}, apperrors.ErrBankDetailsNotFound
	}
	if err != nil {
		return model.BankDetails{}, fmt.Errorf("failed to query bank_account table: %w", err)
	}

	d.AccountNumber, err = r.box.Decrypt(encrypted)
	if err != nil {
		return model.BankDetails{}, fmt.Errorf("bank account for investor %s: %w", investorID, err)
	}
	return d, nil
}

// InsertBankDetails stores a new active account for the investor.
func (r *BankAccountRepository) InsertBankDetails(ctx context.Context, d model.BankDetails) error {
	encrypted, err := r.box.Encrypt(d.AccountNumber)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO bank_account (id, investor_id, account_number_encrypted, ifsc, account_holder_name, bank_name, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		uuid.New().String(),
		d.InvestorID,
		encrypted,
		d.IFSC,
		d.AccountHolderName,
		d.BankName,
		FormatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert bank_account: %w", err)
	}
	return nil
}
