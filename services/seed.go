package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"menu-companion/docstore"
	"menu-companion/logger"
	"menu-companion/models"
	"menu-companion/storage"

	"github.com/google/uuid"
)

const (
	// specialsGroupHe marks meals that also come in a personal size.
	specialsGroupHe     = "מיוחדים"
	personalSuffixAr    = " (صغير)"
	personalSuffixHe    = " (אישית)"
	personalPriceOffset = 20
)

// SeedCategory is one entry of the seed file: a category document plus its meals.
type SeedCategory struct {
	ID string `json:"id"`
	models.Document
	Meals []models.Document `json:"Meals,omitempty"`
}

type SeedResult struct {
	Categories int
	Meals      int
	Skipped    int
}

// ReadSeedFile parses a seed file.
func ReadSeedFile(r io.Reader) ([]SeedCategory, error) {
	var cats []SeedCategory
	if err := json.NewDecoder(r).Decode(&cats); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	return cats, nil
}

// Seed writes categories and meals. Categories without an id are skipped.
// Categories without a price get 0, meals without an index get 0, and meals
// in the Hebrew "specials" group get an extra personal-size variant.
// newID generates meal ids; nil means random UUIDs.
func Seed(ctx context.Context, w docstore.Writer, cats []SeedCategory, newID func() string) (SeedResult, error) {
	if newID == nil {
		newID = uuid.NewString
	}
	log := logger.For("seed")
	var res SeedResult
	for _, c := range cats {
		if c.ID == "" {
			res.Skipped++
			continue
		}
		doc := c.Document
		if doc.Price == nil {
			doc.Price = models.Int64(0)
		}
		if err := w.PutCategory(ctx, c.ID, doc); err != nil {
			return res, fmt.Errorf("seed category %s: %w", c.ID, err)
		}
		res.Categories++

		for _, meal := range c.Meals {
			if meal.Index == nil {
				meal.Index = models.Int64(0)
			}
			if err := w.AddMeal(ctx, c.ID, newID(), meal); err != nil {
				return res, fmt.Errorf("seed meal of %s: %w", c.ID, err)
			}
			res.Meals++

			if meal.GroupHe == nil || *meal.GroupHe != specialsGroupHe {
				continue
			}
			small, ok := personalVariant(meal)
			if !ok {
				log.Warn().Str("category", c.ID).Msg("special meal lacks names or price, no personal variant")
				continue
			}
			if err := w.AddMeal(ctx, c.ID, newID(), small); err != nil {
				return res, fmt.Errorf("seed meal of %s: %w", c.ID, err)
			}
			res.Meals++
		}
	}
	return res, nil
}

func personalVariant(meal models.Document) (models.Document, bool) {
	if meal.NameAr == nil || meal.NameHe == nil || meal.Price == nil {
		return models.Document{}, false
	}
	small := meal
	small.NameAr = models.String(*meal.NameAr + personalSuffixAr)
	small.NameHe = models.String(*meal.NameHe + personalSuffixHe)
	small.Price = models.Int64(*meal.Price - personalPriceOffset)
	return small, true
}

// UploadCategoryImages uploads "<id>.png" from dir for every category that has
// one. Missing files are skipped. It returns how many were uploaded.
func UploadCategoryImages(ctx context.Context, up storage.Uploader, dir string, cats []SeedCategory) (int, error) {
	n := 0
	for _, c := range cats {
		if c.ID == "" {
			continue
		}
		name := c.ID + ".png"
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return n, err
		}
		err = up.Upload(ctx, name, "image/png", f)
		f.Close()
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// ExportCategory is one entry of the export file.
type ExportCategory struct {
	ID    string `json:"id"`
	Image string `json:"image"`
	models.Document
	Meals []ExportMeal `json:"Meals"`
}

type ExportMeal struct {
	ID string `json:"id,omitempty"`
	models.Document
}

// Export writes every category, sorted, with its sorted meals (groups
// compared in langCode) as indented JSON. The output can be fed back to Seed.
func Export(ctx context.Context, store docstore.Store, langCode string, w io.Writer) error {
	cats, err := store.Categories(ctx)
	if err != nil {
		return fmt.Errorf("export categories: %w", err)
	}
	out := make([]ExportCategory, 0, len(cats))
	for _, c := range SortCategories(cats) {
		if c.ID == "" {
			continue
		}
		meals, err := store.Meals(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("export meals of %s: %w", c.ID, err)
		}
		ec := ExportCategory{
			ID:       c.ID,
			Image:    c.ID + ".png",
			Document: models.DocumentFrom(c),
			Meals:    make([]ExportMeal, 0, len(meals)),
		}
		for _, m := range SortMeals(meals, langCode) {
			ec.Meals = append(ec.Meals, ExportMeal{ID: m.ID, Document: models.DocumentFrom(m)})
		}
		out = append(out, ec)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
