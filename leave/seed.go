package leave

import (
	"context"
	"fmt"
)

// CategoryWriter is the subset of Store needed to seed categories.
type CategoryWriter interface {
	CategoryLister
	SaveCategory(ctx context.Context, c Category) error
}

// SeedDefaultCategories saves DefaultCategories when the store has none.
// It reports whether anything was written.
func SeedDefaultCategories(ctx context.Context, s CategoryWriter) (bool, error) {
	existing, err := s.ListCategories(ctx)
	if err != nil {
		return false, fmt.Errorf("list categories: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}
	for _, c := range DefaultCategories() {
		if err := s.SaveCategory(ctx, c); err != nil {
			return false, fmt.Errorf("seed category %s: %w", c.ID, err)
		}
	}
	return true, nil
}
