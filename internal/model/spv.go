package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SPV is the special purpose vehicle holding title to one land asset.
// FaceValuePerShare and AuthorizedCapital are nil when the SPV's share
// structure has not been configured.
type SPV struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	ProjectID         string           `json:"projectId,omitempty"` // Empty until the SPV is linked to a project
	FaceValuePerShare *decimal.Decimal `json:"faceValuePerShare,omitempty"`
	AuthorizedCapital *decimal.Decimal `json:"authorizedCapital,omitempty"`
	MaxInvestors      int              `json:"maxInvestors"` // 0 means no cap
	CreatedAt         time.Time        `json:"createdAt"`
}

// ShareStructure is the resolved share configuration used by the allocator.
// AuthorizedCapital stays nil when unset so the allocator can fall back to the pool.
type ShareStructure struct {
	FaceValuePerShare decimal.Decimal
	AuthorizedCapital *decimal.Decimal
}

// Investor is the read model of an onboarded investor.
type Investor struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	KYCVerified bool       `json:"kycVerified"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}
