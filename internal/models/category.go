package models

import "strings"

// Category is one of the fixed desks an article is filed under
type Category string

const (
	CategoryWorld         Category = "World"
	CategoryIndia         Category = "India"
	CategoryBusiness      Category = "Business"
	CategoryTechnology    Category = "Technology"
	CategoryEntertainment Category = "Entertainment"
	CategorySports        Category = "Sports"
	CategoryHealth        Category = "Health"
	CategoryLifestyle     Category = "Lifestyle"
)

// DefaultCategory is used when an article is created without one.
const DefaultCategory = CategoryWorld

// Categories lists every category in homepage order.
var Categories = []Category{
	CategoryWorld,
	CategoryIndia,
	CategoryBusiness,
	CategoryTechnology,
	CategoryEntertainment,
	CategorySports,
	CategoryHealth,
	CategoryLifestyle,
}

// Slug returns the lower-cased URL form, e.g. "india".
func (c Category) Slug() string {
	return strings.ToLower(string(c))
}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory matches a name or slug case-insensitively.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}
