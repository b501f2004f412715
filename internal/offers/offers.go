// Package offers issues redeemable recovery offer codes for scan decisions.
//
// With a Stripe key configured, discount actions mint single-use promotion
// codes; otherwise (and on any Stripe failure) the static campaign codes
// are used. Offer issuance follows the same policy as the scoring pipeline:
// failures degrade, they never fail the scan.
package offers

import (
	"context"
	"strings"

	"github.com/cartguard/cartguard/internal/idgen"
	"github.com/cartguard/cartguard/internal/scan"
)

// Static campaign codes, used when Stripe is not configured.
const (
	CodeDiscount20   = "SAVE20"
	CodeDiscount25   = "SAVE25"
	CodeFreeShipping = "FREESHIP"
)

// Minter creates a redeemable code for a percent-off discount.
// Implemented by the Stripe client; nil means static codes only.
type Minter interface {
	MintDiscountCode(ctx context.Context, percentOff int64, code string) (string, error)
}

// Issuer maps recovery actions to offer codes.
type Issuer struct {
	minter Minter
}

// NewIssuer creates an offer issuer. minter may be nil for static codes.
func NewIssuer(minter Minter) *Issuer {
	return &Issuer{minter: minter}
}

// Issue returns the offer code for an action, or "" for actions that carry
// no offer (none, captcha). Never fails: Stripe errors fall back to the
// static code.
func (i *Issuer) Issue(ctx context.Context, action scan.Action, riskPct int) string {
	switch action {
	case scan.ActionDiscount20:
		return i.mint(ctx, 20, CodeDiscount20)
	case scan.ActionDiscount25:
		return i.mint(ctx, 25, CodeDiscount25)
	case scan.ActionFreeShipping:
		return CodeFreeShipping
	default:
		return ""
	}
}

func (i *Issuer) mint(ctx context.Context, percentOff int64, staticCode string) string {
	if i.minter == nil {
		return staticCode
	}

	// Unique per-session code, e.g. SAVE20-3F9A
	code := staticCode + "-" + strings.ToUpper(idgen.Hex(2))
	minted, err := i.minter.MintDiscountCode(ctx, percentOff, code)
	if err != nil {
		return staticCode
	}
	return minted
}
