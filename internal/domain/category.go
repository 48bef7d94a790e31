package domain

// Category is the wire-stable vocabulary for POI categories. Exactly these
// seven values are accepted by downstream consumers; anything else coming
// back from extraction is coerced to CategoryHiddenGems.
type Category string

const (
	CategoryEats        Category = "Eats"
	CategoryAttractions Category = "Attractions"
	CategoryStay        Category = "Stay"
	CategoryShopping    Category = "Shopping"
	CategoryNature      Category = "Nature & Parks"
	CategoryHiddenGems  Category = "Hidden Gems"
	CategoryNightlife   Category = "Nightlife"
)

// Categories returns the full vocabulary in its canonical order, as embedded
// in the extraction response schema.
func Categories() []Category {
	return []Category{
		CategoryEats,
		CategoryAttractions,
		CategoryStay,
		CategoryShopping,
		CategoryNature,
		CategoryHiddenGems,
		CategoryNightlife,
	}
}

// Valid reports whether c is one of the seven wire values.
func (c Category) Valid() bool {
	switch c {
	case CategoryEats, CategoryAttractions, CategoryStay, CategoryShopping,
		CategoryNature, CategoryHiddenGems, CategoryNightlife:
		return true
	}
	return false
}

// NormalizeCategory maps a raw extraction label onto the vocabulary,
// falling back to CategoryHiddenGems for anything unrecognized.
func NormalizeCategory(raw string) Category {
	if c := Category(raw); c.Valid() {
		return c
	}
	return CategoryHiddenGems
}
