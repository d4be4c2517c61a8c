package testutil

import (
	"database/sql"
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/lock"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/repository"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/secret"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/service"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/storage"
)

// Services bundles every service wired against one test database, together
// with the fakes standing in for external collaborators.
type Services struct {
	Bank     *FakeBankClient
	ESign    *FakeESignClient
	Notifier *RecordingNotifier
	Store    *storage.MemoryStore
	Locker   *lock.LocalLocker
	Box      *secret.Box

	BankAccounts *repository.BankAccountRepository
	Audit        *repository.AuditRepository

	SPV          *service.SPVService
	Signing      *service.SigningService
	Allocation   *service.AllocationService
	Distribution *service.DistributionService
	Approval     *service.ApprovalService
	Payout       *service.PayoutService
	Project      *service.ProjectService
	System       *service.SystemService
}

// NewTestServices wires the full service graph the way cmd/server does,
// with fakes for the bank, e-sign provider, document store and notifier.
//
// Example usage:
//
//	db := testutil.SetupTestDB(t)
//	svc := testutil.NewTestServices(t, db)
//	result, err := svc.Allocation.Allocate(ctx, spv.ID, project.ID, "ops")
func NewTestServices(t *testing.T, db *sql.DB) *Services {
	t.Helper()

	log := TestLogger()
	s := &Services{
		Bank:     NewFakeBankClient(),
		ESign:    NewFakeESignClient(),
		Notifier: &RecordingNotifier{},
		Store:    storage.NewMemoryStore("https://docs.test"),
		Locker:   lock.NewLocalLocker(),
		Box:      NewTestSecretBox(t),
	}

	ledgerRepo := repository.NewShareLedgerRepository(db)
	spvRepo := repository.NewSPVRepository(db)
	distRepo := repository.NewDistributionRepository(db)
	s.BankAccounts = repository.NewBankAccountRepository(db, s.Box)
	s.Audit = repository.NewAuditRepository(db)

	events := service.NewEvents(s.Audit, s.Notifier, log)
	sources := []service.ShareholderSource{
		service.NewLedgerSource(ledgerRepo),
		service.NewCapTableSource(repository.NewCapTableRepository(db)),
	}

	s.SPV = service.NewSPVService(spvRepo, Dec("10"), time.Minute)
	s.Signing = service.NewSigningService(s.SPV, ledgerRepo, repository.NewSigningRepository(db), s.Store, s.ESign, events, log)
	s.Allocation = service.NewAllocationService(db, repository.NewPaymentRepository(db), ledgerRepo, s.SPV, s.Signing, events, log)
	s.Distribution = service.NewDistributionService(db, spvRepo, distRepo, sources, Dec("20"), events, log)
	s.Approval = service.NewApprovalService(distRepo, events, log)
	s.Payout = service.NewPayoutService(distRepo, s.BankAccounts, s.Bank, s.Locker, time.Minute, events, log)
	s.Project = service.NewProjectService(repository.NewProjectRepository(db), events, log)
	s.System = service.NewSystemService(db)
	return s
}

// NewTestSystemService creates a SystemService for handler tests.
func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()

	return service.NewSystemService(db)
}

// NewTestSecretBox creates a fernet box with a freshly generated key.
func NewTestSecretBox(t *testing.T) *secret.Box {
	t.Helper()

	key, err := secret.GenerateKey()
	if err != nil {
		t.Fatalf("Failed to generate fernet key: %v", err)
	}
	box, err := secret.New(key)
	if err != nil {
		t.Fatalf("Failed to create secret box: %v", err)
	}
	return box
}

// CreateBankDetails stores an active, encrypted bank account for the investor.
func CreateBankDetails(t *testing.T, repo *repository.BankAccountRepository, investorID string) model.BankDetails {
	t.Helper()

	d := model.BankDetails{
		InvestorID:        investorID,
		AccountNumber:     "50100" + randomDigits(9),
		IFSC:              "HDFC0001234",
		AccountHolderName: "Holder " + randomAlphanumeric(4),
		BankName:          "HDFC Bank",
	}
	if err := repo.InsertBankDetails(t.Context(), d); err != nil {
		t.Fatalf("Failed to create bank details: %v", err)
	}
	return d
}

// TestLogger returns a logger that discards output.
func TestLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// MakeName generates a unique display name for testing.
//
// Example usage:
//
//	name := testutil.MakeName("SPV")
//	// Returns: "SPV ABC123"
func MakeName(base string) string {
	if base == "" {
		base = "Test"
	}
	return base + " " + randomAlphanumeric(6)
}

// randomAlphanumeric generates a random alphanumeric string of specified length.
func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		//nolint:gosec // G404: Using math/rand for test data generation is acceptable
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}

func randomDigits(length int) string {
	result := make([]byte, length)
	for i := range result {
		//nolint:gosec // G404: Using math/rand for test data generation is acceptable
		result[i] = byte('0' + rand.Intn(10))
	}
	return string(result)
}
