package models

import "errors"

// ErrMissingID is returned by operations that need a stored item id.
var ErrMissingID = errors.New("menu item has no id")

const (
	LangAr = "ar"
	LangHe = "he"
)

// Localized maps a language code ("ar", "he") to text.
type Localized map[string]string

// In returns the text for code, or "" when absent.
func (l Localized) In(code string) string {
	return l[code]
}

// MenuItem is a category (CategoryID empty) or a meal nested under a category.
type MenuItem struct {
	ID         string
	CategoryID string
	Name       Localized
	Group      Localized
	Info       Localized
	Price      *int64
	Index      *int64
}

func (m MenuItem) IsCategory() bool {
	return m.CategoryID == ""
}

// SortIndex is Index with nil treated as 0.
func (m MenuItem) SortIndex() int64 {
	if m.Index == nil {
		return 0
	}
	return *m.Index
}

// PriceValue is Price with nil treated as 0.
func (m MenuItem) PriceValue() int64 {
	if m.Price == nil {
		return 0
	}
	return *m.Price
}

// IsFree reports whether the item displays as free (no price or zero).
func (m MenuItem) IsFree() bool {
	return m.PriceValue() == 0
}

// ImageKey is the object name of the item's image, "<id>.png".
func (m MenuItem) ImageKey() (string, error) {
	if m.ID == "" {
		return "", ErrMissingID
	}
	return m.ID + ".png", nil
}

// Document is the flat stored shape of a menu item, shared by every backend
// and by the seed file.
type Document struct {
	NameAr  *string `json:"name_ar,omitempty" bson:"name_ar,omitempty"`
	NameHe  *string `json:"name_he,omitempty" bson:"name_he,omitempty"`
	GroupAr *string `json:"group_ar,omitempty" bson:"group_ar,omitempty"`
	GroupHe *string `json:"group_he,omitempty" bson:"group_he,omitempty"`
	InfoAr  *string `json:"info_ar,omitempty" bson:"info_ar,omitempty"`
	InfoHe  *string `json:"info_he,omitempty" bson:"info_he,omitempty"`
	Price   *int64  `json:"price,omitempty" bson:"price,omitempty"`
	Index   *int64  `json:"index,omitempty" bson:"index,omitempty"`
}

// Item converts the document into a MenuItem with the given ids.
func (d Document) Item(id, categoryID string) MenuItem {
	return MenuItem{
		ID:         id,
		CategoryID: categoryID,
		Name:       localized(d.NameAr, d.NameHe),
		Group:      localized(d.GroupAr, d.GroupHe),
		Info:       localized(d.InfoAr, d.InfoHe),
		Price:      d.Price,
		Index:      d.Index,
	}
}

// DocumentFrom is the inverse of Document.Item.
func DocumentFrom(m MenuItem) Document {
	return Document{
		NameAr:  lookup(m.Name, LangAr),
		NameHe:  lookup(m.Name, LangHe),
		GroupAr: lookup(m.Group, LangAr),
		GroupHe: lookup(m.Group, LangHe),
		InfoAr:  lookup(m.Info, LangAr),
		InfoHe:  lookup(m.Info, LangHe),
		Price:   m.Price,
		Index:   m.Index,
	}
}

func localized(ar, he *string) Localized {
	l := Localized{}
	if ar != nil {
		l[LangAr] = *ar
	}
	if he != nil {
		l[LangHe] = *he
	}
	return l
}

func lookup(l Localized, code string) *string {
	v, ok := l[code]
	if !ok {
		return nil
	}
	return &v
}

// Int64 returns a pointer to v, for building optional fields.
func Int64(v int64) *int64 {
	return &v
}

// String returns a pointer to v.
func String(v string) *string {
	return &v
}
