package services

import (
	"sort"

	"menu-companion/models"
)

// SortCategories returns a copy of items ordered by index ascending (nil as 0).
// Equal indexes keep their arrival order.
func SortCategories(items []models.MenuItem) []models.MenuItem {
	out := cloneItems(items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortIndex() < out[j].SortIndex()
	})
	return out
}

// SortMeals returns a copy of items ordered by three consecutive stable sorts:
// price descending, then group (in langCode) ascending, then index ascending.
// The last sort dominates, so the result is index, then group, then price.
// The chain is kept as three passes so ties resolve exactly as the menu
// always has.
func SortMeals(items []models.MenuItem, langCode string) []models.MenuItem {
	out := cloneItems(items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PriceValue() > out[j].PriceValue()
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Group.In(langCode) < out[j].Group.In(langCode)
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortIndex() < out[j].SortIndex()
	})
	return out
}

func cloneItems(items []models.MenuItem) []models.MenuItem {
	if items == nil {
		return nil
	}
	out := make([]models.MenuItem, len(items))
	copy(out, items)
	return out
}
