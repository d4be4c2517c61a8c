// Package agreement renders shareholder agreement documents.
package agreement

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/shopspring/decimal"
)

// ContentType is the media type of rendered agreements.
const ContentType = "text/plain; charset=utf-8"

// Terms are the figures printed on one investor's agreement.
type Terms struct {
	AgreementDate     time.Time
	SPVID             string
	SPVName           string
	InvestorID        string
	InvestorName      string
	InvestorEmail     string
	InvestmentAmount  decimal.Decimal
	EquityPercentage  decimal.Decimal
	NumberOfShares    int64
	FaceValuePerShare decimal.Decimal
	PremiumPerShare   decimal.Decimal
}

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"pct":   func(d decimal.Decimal) string { return d.StringFixed(4) },
	"date":  func(t time.Time) string { return t.UTC().Format("2 January 2006") },
}

const body = `SHAREHOLDERS' AGREEMENT

Date: {{date .AgreementDate}}

Company: {{.SPVName}} (SPV {{.SPVID}})
Shareholder: {{.InvestorName}} <{{.InvestorEmail}}> (investor {{.InvestorID}})

1. Subscription
   The Shareholder has subscribed INR {{money .InvestmentAmount}} to the Company.

2. Allotment
   The Company allots {{.NumberOfShares}} equity shares of face value
   INR {{money .FaceValuePerShare}} each, at a premium of INR {{money .PremiumPerShare}} per share.

3. Holding
   Upon allotment the Shareholder holds {{pct .EquityPercentage}}% of the
   subscribed capital of the Company.

4. Distributions
   Proceeds from the sale, lease or liquidation of the Company's asset are
   distributed pro rata to shares held, after deductions, platform fees and
   tax deducted at source.

Signed electronically by the Shareholder.
`

var tmpl = template.Must(template.New("agreement").Funcs(funcs).Parse(body))

// Render returns the agreement text for terms.
func Render(terms Terms) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, terms); err != nil {
		return nil, fmt.Errorf("failed to render agreement: %w", err)
	}
	return buf.Bytes(), nil
}

// ObjectKey is the storage key of an investor's agreement for an SPV.
func ObjectKey(spvID, investorID string) string {
	return fmt.Sprintf("agreements/%s/%s.txt", spvID, investorID)
}
