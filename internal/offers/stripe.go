package offers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

// StripeMinter mints single-use promotion codes backed by Stripe coupons.
// One percent-off coupon is created lazily per discount tier and reused for
// every code minted at that tier.
type StripeMinter struct {
	api    *client.API
	logger *slog.Logger

	mu      sync.Mutex
	coupons map[int64]string // percentOff → coupon ID
}

// NewStripeMinter creates a minter using the given API key.
func NewStripeMinter(apiKey string, logger *slog.Logger) *StripeMinter {
	api := &client.API{}
	api.Init(apiKey, nil)
	if logger == nil {
		logger = slog.Default()
	}
	return &StripeMinter{
		api:     api,
		logger:  logger,
		coupons: make(map[int64]string),
	}
}

// MintDiscountCode creates a single-use promotion code for the given
// percent-off tier.
func (m *StripeMinter) MintDiscountCode(ctx context.Context, percentOff int64, code string) (string, error) {
	couponID, err := m.couponFor(percentOff)
	if err != nil {
		m.logger.Warn("stripe coupon creation failed, using static offer code",
			"percent_off", percentOff,
			"error", err,
		)
		return "", err
	}

	pc, err := m.api.PromotionCodes.New(&stripe.PromotionCodeParams{
		Params:         stripe.Params{Context: ctx},
		Coupon:         stripe.String(couponID),
		Code:           stripe.String(code),
		MaxRedemptions: stripe.Int64(1),
	})
	if err != nil {
		m.logger.Warn("stripe promotion code creation failed, using static offer code",
			"code", code,
			"error", err,
		)
		return "", err
	}
	return pc.Code, nil
}

func (m *StripeMinter) couponFor(percentOff int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.coupons[percentOff]; ok {
		return id, nil
	}

	coupon, err := m.api.Coupons.New(&stripe.CouponParams{
		PercentOff: stripe.Float64(float64(percentOff)),
		Duration:   stripe.String(string(stripe.CouponDurationOnce)),
		Name:       stripe.String(fmt.Sprintf("CartGuard recovery %d%%", percentOff)),
	})
	if err != nil {
		return "", err
	}

	m.coupons[percentOff] = coupon.ID
	return coupon.ID, nil
}
