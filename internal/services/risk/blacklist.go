package risk

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/radar/valuelistitem"
)

// RadarBlacklist checks membership in a Stripe Radar IP value list, so IPs
// blocked in the Stripe dashboard are honoured by the engine as well.
type RadarBlacklist struct {
	client    valuelistitem.Client
	valueList string
}

// NewRadarBlacklist creates a checker for the Radar value list id (rsl_...)
// on the default Stripe API backend.
func NewRadarBlacklist(secretKey, valueList string) *RadarBlacklist {
	return NewRadarBlacklistWithBackend(stripe.GetBackend(stripe.APIBackend), secretKey, valueList)
}

// NewRadarBlacklistWithBackend uses an explicit Stripe backend.
func NewRadarBlacklistWithBackend(backend stripe.Backend, secretKey, valueList string) *RadarBlacklist {
	return &RadarBlacklist{
		client:    valuelistitem.Client{B: backend, Key: secretKey},
		valueList: valueList,
	}
}

func (b *RadarBlacklist) IsBlacklisted(ctx context.Context, ip string) (bool, error) {
	params := &stripe.RadarValueListItemListParams{
		RadarValueList: stripe.String(b.valueList),
		Value:          stripe.String(ip),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)
	params.Single = true

	it := b.client.List(params)
	for it.Next() {
		if item := it.RadarValueListItem(); item != nil && item.Value == ip {
			return true, nil
		}
	}
	if err := it.Err(); err != nil {
		return false, fmt.Errorf("radar value list lookup: %w", err)
	}
	return false, nil
}

// MultiBlacklist reports an address as blacklisted when any source does.
// A hit wins over errors from other sources.
type MultiBlacklist []BlacklistChecker

func (m MultiBlacklist) IsBlacklisted(ctx context.Context, ip string) (bool, error) {
	var errs []error
	for _, checker := range m {
		hit, err := checker.IsBlacklisted(ctx, ip)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if hit {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}
