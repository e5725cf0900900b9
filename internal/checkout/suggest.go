package checkout

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-shop-checkout/internal/shop"
)

// Suggestions returns up to limit products from categories the customer has
// bought from before, skipping products already bought. Without any order
// history it falls back to the first products of the catalog. Results are in
// product id order.
func (s *Service) Suggestions(ctx context.Context, c Customer, limit int) ([]shop.Product, error) {
	if err := requireCustomer(c); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}

	purchased, err := s.store.PurchasedProductIDs(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("load purchase history: %w", err)
	}
	if len(purchased) == 0 {
		products, err := s.store.ListProducts(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}
		return orEmpty(products), nil
	}

	categories, err := s.store.PurchasedCategories(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("load purchased categories: %w", err)
	}
	if len(categories) == 0 {
		return []shop.Product{}, nil
	}

	products, err := s.store.ProductsInCategories(ctx, categories, purchased, limit)
	if err != nil {
		return nil, fmt.Errorf("load suggestions: %w", err)
	}
	return orEmpty(products), nil
}

func orEmpty(ps []shop.Product) []shop.Product {
	if ps == nil {
		return []shop.Product{}
	}
	return ps
}
