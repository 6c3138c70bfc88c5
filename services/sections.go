package services

import "menu-companion/models"

// Section is a run of consecutive meals sharing a group label.
type Section struct {
	Group string
	Meals []models.MenuItem
}

// GroupSections splits sorted meals into runs of equal group label in
// langCode. A new section starts whenever the label differs from the
// previous meal's; meals without a label form sections with an empty Group.
func GroupSections(meals []models.MenuItem, langCode string) []Section {
	var out []Section
	for i, m := range meals {
		g := m.Group.In(langCode)
		if i == 0 || g != out[len(out)-1].Group {
			out = append(out, Section{Group: g})
		}
		last := &out[len(out)-1]
		last.Meals = append(last.Meals, m)
	}
	return out
}
