package docstore

import (
	"context"
	"encoding/json"
	"fmt"

	"menu-companion/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres keeps each document as JSONB. position preserves insertion order,
// which is the order results are returned in.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Categories(ctx context.Context) ([]models.MenuItem, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, doc FROM menu_categories
		ORDER BY position`,
	)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	return collectItems(rows, "")
}

func (p *Postgres) Meals(ctx context.Context, categoryID string) ([]models.MenuItem, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, doc FROM menu_meals
		WHERE category_id = $1
		ORDER BY position`,
		categoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("query meals of %s: %w", categoryID, err)
	}
	return collectItems(rows, categoryID)
}

func (p *Postgres) PutCategory(ctx context.Context, id string, doc models.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal category %s: %w", id, err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO menu_categories (id, doc, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		id, string(raw),
	)
	return err
}

func (p *Postgres) AddMeal(ctx context.Context, categoryID, id string, doc models.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal meal %s: %w", id, err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO menu_meals (id, category_id, doc)
		VALUES ($1, $2, $3::jsonb)`,
		id, categoryID, string(raw),
	)
	return err
}

func collectItems(rows pgx.Rows, categoryID string) ([]models.MenuItem, error) {
	defer rows.Close()
	var items []models.MenuItem
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		item, err := decodeItem(id, categoryID, raw)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func decodeItem(id, categoryID string, raw []byte) (models.MenuItem, error) {
	var doc models.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return models.MenuItem{}, fmt.Errorf("decode document %s: %w", id, err)
	}
	return doc.Item(id, categoryID), nil
}
