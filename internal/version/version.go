// Package version exposes build metadata and feature flags.
package version

// Version is the application version. Overridden at build time with
// -ldflags "-X .../internal/version.Version=v1.2.3".
var Version = "dev"

// Features lists the capabilities this build serves.
var Features = map[string]bool{
	"equity_allocation":      true,
	"distribution_waterfall": true,
	"multi_role_approval":    true,
	"batch_payouts":          true,
	"esign_agreements":       true,
	"project_listing_gate":   true,
}
