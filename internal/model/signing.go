package model

import "time"

// SigningStatus is the state of an e-sign request.
type SigningStatus string

const (
	SigningPending  SigningStatus = "pending"
	SigningSigned   SigningStatus = "signed"
	SigningDeclined SigningStatus = "declined"
	SigningExpired  SigningStatus = "expired"
)

// SigningRequest tracks one shareholder agreement sent for signature.
type SigningRequest struct {
	ID          string        `json:"id"`
	RequestID   string        `json:"requestId"` // Provider-assigned request ID
	SPVID       string        `json:"spvId"`
	InvestorID  string        `json:"investorId"`
	DocumentURL string        `json:"documentUrl"`
	SigningURL  string        `json:"signingUrl"`
	Status      SigningStatus `json:"status"`
	ExpiresAt   *time.Time    `json:"expiresAt,omitempty"`
	SignedAt    *time.Time    `json:"signedAt,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// SignerDetails identifies the person asked to sign.
type SignerDetails struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SigningSession is the provider's answer to a signing initiation.
type SigningSession struct {
	RequestID  string    `json:"requestId"`
	SigningURL string    `json:"signingUrl"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// SigningCallback is a verified provider callback.
type SigningCallback struct {
	RequestID string        `json:"requestId"`
	Status    SigningStatus `json:"status"`
	SignedAt  *time.Time    `json:"signedAt,omitempty"`
}
