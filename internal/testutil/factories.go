package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/repository"
)

// Dec parses a decimal literal, failing loudly on typos in test tables.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ProjectBuilder provides a fluent interface for creating test projects.
//
// Example usage:
//
//	project := testutil.NewProject().Build(t, db)
//
//	pending := testutil.NewProject().
//	    WithStatus(model.ProjectStatusPendingCompliance).
//	    Build(t, db)
type ProjectBuilder struct {
	ID     string
	Name   string
	Status model.ProjectStatus
}

// NewProject creates a ProjectBuilder with sensible defaults.
func NewProject() *ProjectBuilder {
	return &ProjectBuilder{
		ID:     MakeID(),
		Name:   MakeName("Plot"),
		Status: model.ProjectStatusListed,
	}
}

// WithStatus sets the listing status.
func (b *ProjectBuilder) WithStatus(status model.ProjectStatus) *ProjectBuilder {
	b.Status = status
	return b
}

// Build creates the project in the database and returns it.
func (b *ProjectBuilder) Build(t *testing.T, db *sql.DB) model.Project {
	t.Helper()

	now := time.Now().UTC()
	_, err := db.Exec(`
		INSERT INTO project (id, name, status, approvals, created_at, updated_at)
		VALUES (?, ?, ?, '{}', ?, ?)
	`, b.ID, b.Name, string(b.Status), repository.FormatTime(now), repository.FormatTime(now))
	if err != nil {
		t.Fatalf("Failed to create test project: %v", err)
	}

	return model.Project{ID: b.ID, Name: b.Name, Status: b.Status, CreatedAt: now, UpdatedAt: now}
}

// SPVBuilder provides a fluent interface for creating test SPVs.
// The SPV is unlinked and unconfigured unless told otherwise.
//
// Example usage:
//
//	spv := testutil.NewSPV().
//	    WithProject(project.ID).
//	    WithFaceValue("10").
//	    Build(t, db)
type SPVBuilder struct {
	ID                string
	Name              string
	ProjectID         string
	FaceValuePerShare *decimal.Decimal
	AuthorizedCapital *decimal.Decimal
	MaxInvestors      int
}

// NewSPV creates an SPVBuilder with sensible defaults.
func NewSPV() *SPVBuilder {
	return &SPVBuilder{
		ID:   MakeID(),
		Name: MakeName("SPV"),
	}
}

// WithProject links the SPV to a project.
func (b *SPVBuilder) WithProject(projectID string) *SPVBuilder {
	b.ProjectID = projectID
	return b
}

// WithFaceValue sets the face value per share.
func (b *SPVBuilder) WithFaceValue(fv string) *SPVBuilder {
	d := Dec(fv)
	b.FaceValuePerShare = &d
	return b
}

// WithAuthorizedCapital sets the authorized capital.
func (b *SPVBuilder) WithAuthorizedCapital(capital string) *SPVBuilder {
	d := Dec(capital)
	b.AuthorizedCapital = &d
	return b
}

// WithMaxInvestors caps the number of investors.
func (b *SPVBuilder) WithMaxInvestors(n int) *SPVBuilder {
	b.MaxInvestors = n
	return b
}

// Build creates the SPV in the database and returns it.
func (b *SPVBuilder) Build(t *testing.T, db *sql.DB) model.SPV {
	t.Helper()

	var projectID, fv, capital any
	if b.ProjectID != "" {
		projectID = b.ProjectID
	}
	if b.FaceValuePerShare != nil {
		fv = b.FaceValuePerShare.String()
	}
	if b.AuthorizedCapital != nil {
		capital = b.AuthorizedCapital.String()
	}

	now := time.Now().UTC()
	_, err := db.Exec(`
		INSERT INTO spv (id, name, project_id, face_value_per_share, authorized_capital, max_investors, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.Name, projectID, fv, capital, b.MaxInvestors, repository.FormatTime(now))
	if err != nil {
		t.Fatalf("Failed to create test spv: %v", err)
	}

	return model.SPV{
		ID:                b.ID,
		Name:              b.Name,
		ProjectID:         b.ProjectID,
		FaceValuePerShare: b.FaceValuePerShare,
		AuthorizedCapital: b.AuthorizedCapital,
		MaxInvestors:      b.MaxInvestors,
		CreatedAt:         now,
	}
}

// InvestorBuilder provides a fluent interface for creating test investors.
// Investors are KYC verified by default.
type InvestorBuilder struct {
	ID          string
	Name        string
	Email       string
	KYCVerified bool
	Deleted     bool
}

// NewInvestor creates an InvestorBuilder with sensible defaults.
func NewInvestor() *InvestorBuilder {
	name := MakeName("Investor")
	return &InvestorBuilder{
		ID:          MakeID(),
		Name:        name,
		Email:       randomAlphanumeric(8) + "@example.com",
		KYCVerified: true,
	}
}

// WithName sets the investor's name.
func (b *InvestorBuilder) WithName(name string) *InvestorBuilder {
	b.Name = name
	return b
}

// Unverified marks the investor as not having completed KYC.
func (b *InvestorBuilder) Unverified() *InvestorBuilder {
	b.KYCVerified = false
	return b
}

// SoftDeleted marks the investor as removed.
func (b *InvestorBuilder) SoftDeleted() *InvestorBuilder {
	b.Deleted = true
	return b
}

// Build creates the investor in the database and returns it.
func (b *InvestorBuilder) Build(t *testing.T, db *sql.DB) model.Investor {
	t.Helper()

	now := time.Now().UTC()
	var deletedAt any
	inv := model.Investor{ID: b.ID, Name: b.Name, Email: b.Email, KYCVerified: b.KYCVerified, CreatedAt: now}
	if b.Deleted {
		deletedAt = repository.FormatTime(now)
		inv.DeletedAt = &now
	}

	_, err := db.Exec(`
		INSERT INTO investor (id, name, email, kyc_verified, deleted_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, b.ID, b.Name, b.Email, b.KYCVerified, deletedAt, repository.FormatTime(now))
	if err != nil {
		t.Fatalf("Failed to create test investor: %v", err)
	}
	return inv
}

// CreateInvestor creates a KYC-verified investor with the given name.
func CreateInvestor(t *testing.T, db *sql.DB, name string) model.Investor {
	t.Helper()
	return NewInvestor().WithName(name).Build(t, db)
}

// PaymentBuilder provides a fluent interface for creating investor payments.
// Payments are captured by default.
type PaymentBuilder struct {
	ID         string
	InvestorID string
	ProjectID  string
	Amount     decimal.Decimal
	Status     string
	SettledAt  time.Time
}

// NewPayment creates a PaymentBuilder for the investor and project.
func NewPayment(investorID, projectID string) *PaymentBuilder {
	return &PaymentBuilder{
		ID:         MakeID(),
		InvestorID: investorID,
		ProjectID:  projectID,
		Amount:     Dec("100000"),
		Status:     model.PaymentCaptureCaptured,
		SettledAt:  time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
	}
}

// WithAmount sets the settled amount.
func (b *PaymentBuilder) WithAmount(amount string) *PaymentBuilder {
	b.Amount = Dec(amount)
	return b
}

// WithStatus sets the capture status.
func (b *PaymentBuilder) WithStatus(status string) *PaymentBuilder {
	b.Status = status
	return b
}

// Build creates the payment in the database and returns it.
func (b *PaymentBuilder) Build(t *testing.T, db *sql.DB) model.InvestorPayment {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO investor_payment (id, investor_id, project_id, amount_settled, status, settled_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.InvestorID, b.ProjectID, b.Amount.String(), b.Status,
		repository.FormatTime(b.SettledAt), repository.FormatTime(b.SettledAt))
	if err != nil {
		t.Fatalf("Failed to create test payment: %v", err)
	}

	return model.InvestorPayment{
		ID:            b.ID,
		InvestorID:    b.InvestorID,
		ProjectID:     b.ProjectID,
		AmountSettled: b.Amount,
		SettledAt:     b.SettledAt,
	}
}

// CreatePayment creates a captured payment of amount.
func CreatePayment(t *testing.T, db *sql.DB, investorID, projectID, amount string) model.InvestorPayment {
	t.Helper()
	return NewPayment(investorID, projectID).WithAmount(amount).Build(t, db)
}

// CreateCapTableRow adds a legacy cap table row. An empty investorID stores NULL.
func CreateCapTableRow(t *testing.T, db *sql.DB, spvID, investorID string, shares int64) {
	t.Helper()

	var inv any
	if investorID != "" {
		inv = investorID
	}
	_, err := db.Exec(`
		INSERT INTO spv_cap_table (id, spv_id, investor_id, number_of_shares, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, MakeID(), spvID, inv, shares, repository.FormatTime(time.Now().UTC()))
	if err != nil {
		t.Fatalf("Failed to create cap table row: %v", err)
	}
}

// LedgerEntryBuilder provides a fluent interface for creating share ledger
// entries directly, bypassing the allocator.
type LedgerEntryBuilder struct {
	entry model.ShareLedgerEntry
}

// NewLedgerEntry creates a LedgerEntryBuilder with one share of face value 10.
func NewLedgerEntry(spvID, projectID, investorID string) *LedgerEntryBuilder {
	now := time.Now().UTC()
	return &LedgerEntryBuilder{entry: model.ShareLedgerEntry{
		ID:                  MakeID(),
		SPVID:               spvID,
		ProjectID:           projectID,
		InvestorID:          investorID,
		InvestmentAmount:    Dec("10"),
		EquityPercentage:    Dec("100"),
		NumberOfShares:      1,
		FaceValuePerShare:   Dec("10"),
		PremiumPerShare:     Dec("0"),
		TotalInvestmentPool: Dec("10"),
		Status:              model.ShareholdingDistributed,
		CreatedAt:           now,
		UpdatedAt:           now,
	}}
}

// WithShares sets the share count.
func (b *LedgerEntryBuilder) WithShares(n int64) *LedgerEntryBuilder {
	b.entry.NumberOfShares = n
	return b
}

// WithEquity sets the equity percentage.
func (b *LedgerEntryBuilder) WithEquity(pct string) *LedgerEntryBuilder {
	b.entry.EquityPercentage = Dec(pct)
	return b
}

// WithInvestment sets the investment amount and pool.
func (b *LedgerEntryBuilder) WithInvestment(amount, pool string) *LedgerEntryBuilder {
	b.entry.InvestmentAmount = Dec(amount)
	b.entry.TotalInvestmentPool = Dec(pool)
	return b
}

// WithStatus sets the signing status.
func (b *LedgerEntryBuilder) WithStatus(status model.ShareholdingStatus) *LedgerEntryBuilder {
	b.entry.Status = status
	return b
}

// CreatedAt sets the creation time.
func (b *LedgerEntryBuilder) CreatedAt(at time.Time) *LedgerEntryBuilder {
	b.entry.CreatedAt = at
	b.entry.UpdatedAt = at
	return b
}

// Build stores the entry and returns it.
func (b *LedgerEntryBuilder) Build(t *testing.T, db *sql.DB) model.ShareLedgerEntry {
	t.Helper()

	e := b.entry
	if err := repository.NewShareLedgerRepository(db).Upsert(context.Background(), &e); err != nil {
		t.Fatalf("Failed to create share ledger entry: %v", err)
	}
	return e
}

// DistributionBuilder provides a fluent interface for storing distributions
// with hand-picked figures, bypassing the calculator.
//
// Example usage:
//
//	d := testutil.NewDistribution(spv.ID, project.ID).
//	    WithInvestor(a.ID, 70000, "4480000").
//	    FullyApproved().
//	    Build(t, db)
type DistributionBuilder struct {
	d model.Distribution
}

// NewDistribution creates a calculated distribution with no investors.
func NewDistribution(spvID, projectID string) *DistributionBuilder {
	now := time.Now().UTC()
	return &DistributionBuilder{d: model.Distribution{
		ID:                     MakeID(),
		SPVID:                  spvID,
		ProjectID:              projectID,
		DistributionNumber:     "DIST-TEST-" + randomAlphanumeric(8),
		DistributionType:       model.DistributionSaleProceeds,
		GrossProceeds:          Dec("0"),
		TaxWithholding:         model.TaxWithholding{TDSRate: Dec("20"), TDSAmount: Dec("0")},
		NetDistributableAmount: Dec("0"),
		DistributionPerShare:   Dec("0"),
		Status:                 model.DistributionStatusCalculated,
		Revision:               1,
		CreatedAt:              now,
		UpdatedAt:              now,
	}}
}

// WithStatus sets the aggregate status.
func (b *DistributionBuilder) WithStatus(status model.DistributionStatus) *DistributionBuilder {
	b.d.Status = status
	return b
}

// WithInvestor adds a pending investor row paying net.
func (b *DistributionBuilder) WithInvestor(investorID string, shares int64, net string) *DistributionBuilder {
	amount := Dec(net)
	b.d.InvestorDistributions = append(b.d.InvestorDistributions, model.InvestorDistribution{
		InvestorID:          investorID,
		NumberOfShares:      shares,
		OwnershipPercentage: Dec("0"),
		GrossAmount:         amount,
		TDSAmount:           Dec("0"),
		NetAmount:           amount,
		PaymentStatus:       model.PaymentPending,
	})
	b.d.TotalShares += shares
	b.d.NetDistributableAmount = b.d.NetDistributableAmount.Add(amount)
	return b
}

// WithPaymentStatus sets the payment status of the last added investor row.
func (b *DistributionBuilder) WithPaymentStatus(status model.PaymentStatus) *DistributionBuilder {
	b.d.InvestorDistributions[len(b.d.InvestorDistributions)-1].PaymentStatus = status
	return b
}

// WithApproval grants one role's approval.
func (b *DistributionBuilder) WithApproval(role model.ApprovalRole) *DistributionBuilder {
	now := time.Now().UTC()
	*b.d.Approvals.For(role) = model.Approval{Approved: true, ApprovedBy: "tester", ApprovedAt: &now}
	return b
}

// FullyApproved grants every approval and sets the status to approved.
func (b *DistributionBuilder) FullyApproved() *DistributionBuilder {
	for role := range model.ValidApprovalRoles {
		b.WithApproval(role)
	}
	now := time.Now().UTC()
	b.d.ApprovedAt = &now
	b.d.Status = model.DistributionStatusApproved
	return b
}

// Build stores the distribution and returns it.
func (b *DistributionBuilder) Build(t *testing.T, db *sql.DB) *model.Distribution {
	t.Helper()

	d := b.d
	d.InvestorDistributions = append([]model.InvestorDistribution(nil), b.d.InvestorDistributions...)
	if err := repository.NewDistributionRepository(db).Insert(context.Background(), &d); err != nil {
		t.Fatalf("Failed to create test distribution: %v", err)
	}
	return &d
}

