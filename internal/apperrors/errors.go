package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrSPVNotFound indicates that an SPV with the given ID does not exist.
	ErrSPVNotFound = errors.New("spv not found")

	// ErrProjectNotFound indicates that a project with the given ID does not exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrDistributionNotFound indicates that a distribution with the given ID does not exist.
	ErrDistributionNotFound = errors.New("distribution not found")

	// ErrInvestorDistributionNotFound indicates that the distribution has no row for the investor.
	ErrInvestorDistributionNotFound = errors.New("investor distribution not found")

	// ErrInvestorNotFound indicates that the investor does not exist or was removed.
	ErrInvestorNotFound = errors.New("investor not found")

	// ErrShareholdingNotFound indicates that no share ledger entry exists for the SPV/investor pair.
	ErrShareholdingNotFound = errors.New("shareholding not found")

	// ErrSigningRequestNotFound indicates that an e-sign request ID is unknown.
	ErrSigningRequestNotFound = errors.New("signing request not found")

	// ErrBankDetailsNotFound indicates that the investor has no active bank account.
	ErrBankDetailsNotFound = errors.New("active bank details not found")
)

// Structural errors abort an operation before anything is written.
var (
	// ErrSPVNotLinked indicates that the SPV has no project assigned.
	ErrSPVNotLinked = errors.New("spv is not linked to a project")

	// ErrNoShareholders indicates that neither the share ledger nor the legacy
	// cap table yields a resolvable shareholder.
	ErrNoShareholders = errors.New("no shareholders found for spv")

	// ErrInvalidInvestorData indicates that a shareholder row references an
	// investor that cannot be resolved.
	ErrInvalidInvestorData = errors.New("invalid investor data")

	// ErrApprovalsIncomplete indicates that payment processing was requested
	// before all three approvals were granted.
	ErrApprovalsIncomplete = errors.New("all approvals must be granted before processing payments")

	// ErrMissingBankDetails indicates that at least one selected investor has
	// no active bank account; the batch is not submitted.
	ErrMissingBankDetails = errors.New("missing bank details for investor")

	// ErrMaxInvestorsExceeded indicates that the allocation would exceed the SPV's investor cap.
	ErrMaxInvestorsExceeded = errors.New("maximum number of investors exceeded")

	// ErrDistributionLocked indicates an edit or cancellation after an approval was granted.
	ErrDistributionLocked = errors.New("distribution is locked for edits")

	// ErrInvalidTransition indicates a state change not allowed from the current state.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrAlreadyApproved indicates that the approval stage was already granted.
	ErrAlreadyApproved = errors.New("approval already granted")

	// ErrConcurrentModification indicates that the record changed since it was read.
	ErrConcurrentModification = errors.New("record was modified concurrently")

	// ErrShareholdingSigned indicates that re-allocation would drop an investor
	// whose agreement is already signed.
	ErrShareholdingSigned = errors.New("shareholding has a signed agreement")

	// ErrBatchInProgress indicates that another payout batch holds the distribution lock.
	ErrBatchInProgress = errors.New("payout batch already in progress")

	// ErrInvalidSignature indicates that an e-sign callback failed verification.
	ErrInvalidSignature = errors.New("invalid callback signature")
)

// Empty-input conditions. Allocation reports these as outcomes rather than
// returning them; they are exported so callers can name the outcome.
var (
	// ErrNoInvestors indicates that the project has no settled payments yet.
	ErrNoInvestors = errors.New("no settled payments for project")

	// ErrZeroPool indicates that settled payments sum to zero.
	ErrZeroPool = errors.New("total investment pool is zero")
)

// Business logic errors represent validation failures or constraint violations.
var (
	// ErrInvalidUUID indicates that a provided ID is not a valid UUID format.
	ErrInvalidUUID = errors.New("invalid UUID format")

	// ErrNegativeAmount indicates that an amount field has an invalid negative value.
	ErrNegativeAmount = errors.New("amount cannot be negative")

	// ErrInvalidRole indicates an unknown approver role.
	ErrInvalidRole = errors.New("invalid approver role")

	// ErrInvalidDistributionType indicates an unknown distribution type.
	ErrInvalidDistributionType = errors.New("invalid distribution type")

	// ErrInvalidTDSRate indicates a TDS rate outside 0..100.
	ErrInvalidTDSRate = errors.New("tds rate must be between 0 and 100")
)

// Operation failure errors are used as user-facing messages when an
// operation fails for reasons other than missing entities or validation.
var (
	ErrFailedToAllocate              = errors.New("failed to allocate equity")
	ErrFailedToRetrieveShareholdings = errors.New("failed to retrieve shareholdings")
	ErrFailedToCalculate             = errors.New("failed to calculate distribution")
	ErrFailedToRetrieveDistribution  = errors.New("failed to retrieve distribution")
	ErrFailedToUpdateDistribution    = errors.New("failed to update distribution")
	ErrFailedToApprove               = errors.New("failed to record approval")
	ErrFailedToProcessBatch          = errors.New("failed to process payout batch")
	ErrFailedToHandleCallback        = errors.New("failed to handle signing callback")
	ErrFailedToRetrieveProject       = errors.New("failed to retrieve project")
	ErrFailedToUpdateProject         = errors.New("failed to update project")
	ErrFailedToCompleteShareholding  = errors.New("failed to complete shareholding")
	ErrFailedToGetVersionInfo        = errors.New("failed to get version information")
	ErrFailedToResetPayment          = errors.New("failed to reset payment")
)

// Data integrity errors represent inconsistencies or corruption in the data.
var (
	// ErrDataInconsistency indicates that the data is in an inconsistent state.
	ErrDataInconsistency = errors.New("data inconsistency detected")
)
