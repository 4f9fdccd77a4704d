package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

func tee(variants ...ProductVariant) *Product {
	return &Product{ID: 1, Name: "Tee", IsPublished: true, Variants: variants}
}

func TestParseVariantPolicy(t *testing.T) {
	assert.Equal(t, PolicyImplicitSingle, ParseVariantPolicy("implicit_single"))
	assert.Equal(t, PolicyStrict, ParseVariantPolicy("strict"))
	assert.Equal(t, PolicyStrict, ParseVariantPolicy(""))
	assert.Equal(t, PolicyStrict, ParseVariantPolicy("whatever"))
}

func TestResolve(t *testing.T) {
	one := tee(ProductVariant{ID: 10, Value: "M", IsActive: true})
	two := tee(
		ProductVariant{ID: 10, Value: "M", IsActive: true},
		ProductVariant{ID: 11, Value: "L", IsActive: true},
	)
	oneActive := tee(
		ProductVariant{ID: 10, Value: "M", IsActive: true},
		ProductVariant{ID: 11, Value: "L", IsActive: false},
	)
	none := tee(ProductVariant{ID: 10, Value: "M", IsActive: false})

	id := func(v uint) *uint { return &v }

	tests := []struct {
		name    string
		policy  VariantPolicy
		product *Product
		variant *uint
		wantID  uint
		wantErr error
	}{
		{name: "explicit variant", policy: PolicyStrict, product: two, variant: id(11), wantID: 11},
		{name: "unknown variant", policy: PolicyStrict, product: two, variant: id(99), wantErr: apperror.ErrNotFound},
		{name: "inactive explicit variant", policy: PolicyImplicitSingle, product: oneActive, variant: id(11), wantErr: apperror.ErrNotFound},
		{name: "strict needs a variant", policy: PolicyStrict, product: one, wantErr: apperror.ErrVariantRequired},
		{name: "implicit single picks the only variant", policy: PolicyImplicitSingle, product: one, wantID: 10},
		{name: "implicit single ignores inactive variants", policy: PolicyImplicitSingle, product: oneActive, wantID: 10},
		{name: "implicit single with two choices", policy: PolicyImplicitSingle, product: two, wantErr: apperror.ErrVariantRequired},
		{name: "no active variant", policy: PolicyImplicitSingle, product: none, wantErr: apperror.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.policy.Resolve(tt.product, tt.variant)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, v.ID)
		})
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Size: XL", (&ProductVariant{Name: "Size", Value: "XL"}).Label())
	assert.Equal(t, "XL", (&ProductVariant{Value: "XL"}).Label())
}

func TestGenerateSlug(t *testing.T) {
	assert.Equal(t, "demo-t-shirt-demo-tee", generateSlug(" Demo T_Shirt ", "DEMO-TEE"))
}
