// internal/infrastructure/database/memory/product.go
package memory

import (
	"context"
	"sort"

	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// ProductRepository implements product.Repository
type ProductRepository struct {
	store *Store
}

// NewProductRepository creates a product repository
func NewProductRepository(store *Store) *ProductRepository {
	return &ProductRepository{store: store}
}

var _ product.Repository = (*ProductRepository)(nil)

func (r *ProductRepository) GetByID(ctx context.Context, id uint) (*product.Product, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	p, ok := r.store.data.products[id]
	if !ok {
		return nil, apperror.NotFound("product", id)
	}
	p.Variants = r.variantsOf(id)
	return &p, nil
}

func (r *ProductRepository) GetVariant(ctx context.Context, id uint) (*product.ProductVariant, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	v, ok := r.store.data.variants[id]
	if !ok {
		return nil, apperror.NotFound("variant", id)
	}
	return &v, nil
}

func (r *ProductRepository) SKUExists(ctx context.Context, skus []string) (bool, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	return r.skuTaken(skus...), nil
}

func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	skus := []string{p.SKU}
	seen := map[string]bool{p.SKU: true}
	for _, v := range p.Variants {
		if seen[v.SKU] {
			return apperror.ErrDuplicate
		}
		seen[v.SKU] = true
		skus = append(skus, v.SKU)
	}
	if r.skuTaken(skus...) {
		return apperror.ErrDuplicate
	}
	for _, existing := range r.store.data.products {
		if existing.Slug == p.Slug {
			return apperror.ErrDuplicate
		}
	}

	ts := now()
	p.ID = r.store.data.nextID("products")
	p.CreatedAt, p.UpdatedAt = ts, ts
	for i := range p.Variants {
		v := &p.Variants[i]
		v.ID = r.store.data.nextID("product_variants")
		v.ProductID = p.ID
		v.CreatedAt, v.UpdatedAt = ts, ts
		r.store.data.variants[v.ID] = *v
	}

	row := *p
	row.Variants = nil
	r.store.data.products[p.ID] = row
	return nil
}

func (r *ProductRepository) UpdateVariantPrice(ctx context.Context, variantID uint, price int64) error {
	return r.updateVariant(ctx, variantID, func(v *product.ProductVariant) { v.Price = price })
}

func (r *ProductRepository) SetVariantActive(ctx context.Context, variantID uint, active bool) error {
	return r.updateVariant(ctx, variantID, func(v *product.ProductVariant) { v.IsActive = active })
}

func (r *ProductRepository) SetPublished(ctx context.Context, productID uint, published bool) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	p, ok := r.store.data.products[productID]
	if !ok {
		return apperror.NotFound("product", productID)
	}
	p.IsPublished = published
	p.UpdatedAt = now()
	r.store.data.products[productID] = p
	return nil
}

func (r *ProductRepository) updateVariant(ctx context.Context, variantID uint, fn func(v *product.ProductVariant)) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	v, ok := r.store.data.variants[variantID]
	if !ok {
		return apperror.NotFound("variant", variantID)
	}
	fn(&v)
	v.UpdatedAt = now()
	r.store.data.variants[variantID] = v
	return nil
}

func (r *ProductRepository) variantsOf(productID uint) []product.ProductVariant {
	variants := make([]product.ProductVariant, 0)
	for _, v := range r.store.data.variants {
		if v.ProductID == productID {
			variants = append(variants, v)
		}
	}
	sort.Slice(variants, func(i, j int) bool { return variants[i].ID < variants[j].ID })
	return variants
}

func (r *ProductRepository) skuTaken(skus ...string) bool {
	want := make(map[string]bool, len(skus))
	for _, sku := range skus {
		want[sku] = true
	}
	for _, p := range r.store.data.products {
		if want[p.SKU] {
			return true
		}
	}
	for _, v := range r.store.data.variants {
		if want[v.SKU] {
			return true
		}
	}
	return false
}
