package bot

import (
	"testing"

	"menu-companion/models"

	"github.com/stretchr/testify/assert"
)

func TestMealsTextGroupsHeaders(t *testing.T) {
	cat := models.MenuItem{ID: "pizzas", Name: models.Localized{"ar": "بيتزا"}}
	meals := []models.MenuItem{
		{ID: "1", Name: models.Localized{"ar": "أ"}, Group: models.Localized{"ar": "كلاسيك"}, Price: models.Int64(40)},
		{ID: "2", Name: models.Localized{"ar": "ب"}, Group: models.Localized{"ar": "كلاسيك"}, Price: models.Int64(0)},
		{ID: "3", Name: models.Localized{"ar": "ج"}, Group: models.Localized{"ar": "مميزة"}, Price: models.Int64(55),
			Info: models.Localized{"ar": "مع فطر"}},
	}
	want := "بيتزا\n" +
		"\n▪️ كلاسيك\n• أ - 40 ₪\n• ب - مجاناً\n" +
		"\n▪️ مميزة\n• ج - 55 ₪\n   مع فطر"
	assert.Equal(t, want, mealsText(cat, meals, "ar"))
}

func TestSplitCallback(t *testing.T) {
	tests := []struct {
		in, action, arg string
	}{
		{"lang:he", "lang:", "he"},
		{"cat:abc:def", "cat:", "abc:def"},
		{"reload", "reload", ""},
	}
	for _, tt := range tests {
		a, g := splitCallback(tt.in)
		if a != tt.action || g != tt.arg {
			t.Errorf("splitCallback(%q) = %q, %q", tt.in, a, g)
		}
	}
}
