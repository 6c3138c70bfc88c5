// Package docstore reads menu documents from the remote document database:
// a top-level collection of categories and, per category, a collection of meals.
package docstore

import (
	"context"

	"menu-companion/models"
)

// Store is the read-only access used at runtime. Results come back in the
// store's natural order; callers sort.
type Store interface {
	Categories(ctx context.Context) ([]models.MenuItem, error)
	Meals(ctx context.Context, categoryID string) ([]models.MenuItem, error)
}

// Writer is used by the seeding tool only.
type Writer interface {
	PutCategory(ctx context.Context, id string, doc models.Document) error
	AddMeal(ctx context.Context, categoryID, id string, doc models.Document) error
}

// ReadWriter is implemented by every backend.
type ReadWriter interface {
	Store
	Writer
}
