// internal/domain/product/policy.go
package product

import (
	"fmt"

	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// VariantPolicy decides which variant a cart line refers to when the
// caller does or does not name one.
type VariantPolicy string

const (
	// PolicyStrict requires an explicit variant whenever the product has any
	PolicyStrict VariantPolicy = config.VariantPolicyStrict
	// PolicyImplicitSingle picks the only active variant when none is given
	PolicyImplicitSingle VariantPolicy = config.VariantPolicyImplicitSingle
)

// ParseVariantPolicy maps the configured value, defaulting to strict
func ParseVariantPolicy(value string) VariantPolicy {
	if VariantPolicy(value) == PolicyImplicitSingle {
		return PolicyImplicitSingle
	}
	return PolicyStrict
}

// Resolve picks the purchasable variant of p. A product without any
// active variant cannot be bought under either policy.
func (policy VariantPolicy) Resolve(p *Product, variantID *uint) (*ProductVariant, error) {
	if variantID != nil {
		v := p.FindVariant(*variantID)
		if v == nil {
			return nil, apperror.NotFound("variant", *variantID)
		}
		if !v.IsActive {
			return nil, apperror.Unavailable("variant", *variantID)
		}
		return v, nil
	}

	active := p.ActiveVariants()
	switch {
	case len(active) == 0:
		return nil, apperror.Unavailable("product", p.ID)
	case len(active) == 1 && policy == PolicyImplicitSingle:
		return p.FindVariant(active[0].ID), nil
	default:
		return nil, fmt.Errorf("%w: product %d has %d variants", apperror.ErrVariantRequired, p.ID, len(active))
	}
}
