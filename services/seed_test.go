package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"menu-companion/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedJSON = `[
  {"id": "pizzas", "name_ar": "بيتزا", "name_he": "פיצות", "index": 1,
   "Meals": [
     {"name_ar": "مارغريتا", "name_he": "מרגריטה", "price": 50, "group_ar": "مميزة", "group_he": "מיוחדים", "index": 2},
     {"name_ar": "فطر", "name_he": "פטריות", "price": 45}
   ]},
  {"name_ar": "بلا رقم", "name_he": "בלי מזהה"},
  {"id": "drinks", "name_ar": "مشروبات", "name_he": "שתייה", "price": 8, "index": 2}
]`

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("m%d", n)
	}
}

func TestSeed(t *testing.T) {
	cats, err := ReadSeedFile(strings.NewReader(seedJSON))
	require.NoError(t, err)
	require.Len(t, cats, 3)

	store := newFakeStore()
	res, err := Seed(context.Background(), store, cats, sequentialIDs())
	require.NoError(t, err)

	assert.Equal(t, SeedResult{Categories: 2, Meals: 3, Skipped: 1}, res)
	assert.Equal(t, []string{"pizzas", "drinks"}, store.putCategories)

	// category without a price gets 0
	assert.Equal(t, int64(0), store.categories[0].PriceValue())
	assert.Equal(t, int64(8), store.categories[1].PriceValue())

	meals := store.addedMeals["pizzas"]
	require.Len(t, meals, 3)
	assert.Equal(t, "מרגריטה", *meals[0].NameHe)

	small := meals[1]
	assert.Equal(t, "مارغريتا (صغير)", *small.NameAr)
	assert.Equal(t, "מרגריטה (אישית)", *small.NameHe)
	assert.Equal(t, int64(30), *small.Price)
	assert.Equal(t, int64(2), *small.Index)
	// the original is untouched by the variant
	assert.Equal(t, int64(50), *meals[0].Price)

	// meal without an index gets 0
	require.NotNil(t, meals[2].Index)
	assert.Equal(t, int64(0), *meals[2].Index)
}

func TestSeedBadFile(t *testing.T) {
	_, err := ReadSeedFile(strings.NewReader(`{"id": "not a list"}`))
	assert.Error(t, err)
}

func TestExportSortsAndRoundTrips(t *testing.T) {
	cats, err := ReadSeedFile(strings.NewReader(seedJSON))
	require.NoError(t, err)
	src := newFakeStore()
	_, err = Seed(context.Background(), src, cats, sequentialIDs())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Export(context.Background(), src, models.LangHe, &buf))

	exported, err := ReadSeedFile(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, exported, 2)
	assert.Equal(t, "pizzas", exported[0].ID)
	assert.Equal(t, "drinks", exported[1].ID)
	require.Len(t, exported[0].Meals, 3)
	// index 0 first, then the two index-2 specials by price descending
	assert.Equal(t, int64(45), *exported[0].Meals[0].Price)
	assert.Equal(t, int64(50), *exported[0].Meals[1].Price)
	assert.Equal(t, int64(30), *exported[0].Meals[2].Price)
	assert.Contains(t, buf.String(), `"image": "pizzas.png"`)
}

type fakeUploader struct {
	uploaded map[string][]byte
}

func (f *fakeUploader) Upload(ctx context.Context, name, contentType string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.uploaded[name] = data
	return nil
}

func TestUploadCategoryImages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pizzas.png"), []byte("png"), 0o644))

	up := &fakeUploader{uploaded: map[string][]byte{}}
	cats := []SeedCategory{{ID: "pizzas"}, {ID: "drinks"}, {}}
	n, err := UploadCategoryImages(context.Background(), up, dir, cats)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []byte("png"), up.uploaded["pizzas.png"])
}
