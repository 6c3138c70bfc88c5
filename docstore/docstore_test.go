package docstore

import (
	"context"
	"os"
	"testing"

	"menu-companion/config"
	"menu-companion/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeItem(t *testing.T) {
	item, err := decodeItem("m1", "pizzas", []byte(`{"name_ar":"بيبروني","group_he":"פיצה","price":35,"index":1}`))
	require.NoError(t, err)
	assert.Equal(t, "m1", item.ID)
	assert.Equal(t, "pizzas", item.CategoryID)
	assert.Equal(t, "بيبروني", item.Name.In(models.LangAr))
	assert.Equal(t, "", item.Name.In(models.LangHe))
	assert.Equal(t, "פיצה", item.Group.In(models.LangHe))
	assert.Equal(t, int64(35), item.PriceValue())
	assert.Equal(t, int64(1), item.SortIndex())

	item, err = decodeItem("c1", "", []byte(`{}`))
	require.NoError(t, err)
	assert.Nil(t, item.Price)
	assert.Nil(t, item.Index)
	assert.True(t, item.IsCategory())

	_, err = decodeItem("bad", "", []byte(`{"price":"forty"}`))
	assert.Error(t, err)
}

// exerciseStore runs the same scenario against any backend.
func exerciseStore(t *testing.T, s ReadWriter) {
	t.Helper()
	ctx := context.Background()
	cat := "test-" + uuid.NewString()

	require.NoError(t, s.PutCategory(ctx, cat, models.Document{NameAr: models.String("بيتزا"), Index: models.Int64(1)}))
	require.NoError(t, s.AddMeal(ctx, cat, uuid.NewString(), models.Document{NameAr: models.String("مارغريتا"), Price: models.Int64(40)}))
	require.NoError(t, s.AddMeal(ctx, cat, uuid.NewString(), models.Document{NameAr: models.String("بيبروني"), Price: models.Int64(35)}))

	cats, err := s.Categories(ctx)
	require.NoError(t, err)
	var found bool
	for _, c := range cats {
		if c.ID == cat {
			found = true
			assert.Equal(t, "بيتزا", c.Name.In(models.LangAr))
		}
	}
	assert.True(t, found, "category %s not listed", cat)

	meals, err := s.Meals(ctx, cat)
	require.NoError(t, err)
	require.Len(t, meals, 2)
	for _, m := range meals {
		assert.Equal(t, cat, m.CategoryID)
	}

	empty, err := s.Meals(ctx, "no-such-category")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPostgres_Integration(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if testing.Short() || url == "" {
		t.Skip("skipping postgres integration test: TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	schema, err := os.ReadFile("../migrations/001_menu.sql")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(schema))
	require.NoError(t, err)

	exerciseStore(t, NewPostgres(pool))
}

func TestMongo_Integration(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if testing.Short() || uri == "" {
		t.Skip("skipping mongo integration test: TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	m, err := NewMongo(ctx, config.MongoConfig{URI: uri, Database: "menu_test"})
	require.NoError(t, err)
	defer m.Close(ctx)

	exerciseStore(t, m)
}
