package recognition

import "strings"

// Identity is the canonical name and category an inventory record is keyed by,
// independent of which surface label the vision service produced.
type Identity struct {
	Name     string
	Category string
}

// excludedTerms are whole-image labels too generic to become inventory items.
// The vision service emits these constantly for food photos.
var excludedTerms = map[string]struct{}{
	"vegetable":              {},
	"produce":                {},
	"ingredient":             {},
	"food":                   {},
	"food group":             {},
	"cruciferous vegetables": {},
	"leaf vegetable":         {},
	"natural foods":          {},
	"superfood":              {},
	"staple food":            {},
	"vegetarian cuisine":     {},
	"cabbages":               {},
	"fruit":                  {},
	"nightshade":             {},
	"still life photography": {},
	"macro photography":      {},
	"plant":                  {},
	"flowering plant":        {},
	"flower":                 {},
	"close-up":               {},
}

// itemVariants maps surface forms to one canonical name. Keys and values are
// normalized lowercase.
var itemVariants = map[string]string{
	"bush tomato":        "tomato",
	"plum tomato":        "tomato",
	"cherry tomato":      "tomato",
	"beefsteak tomato":   "tomato",
	"roma tomato":        "tomato",
	"granny smith apple": "apple",
	"fuji apple":         "apple",
	"chili pepper":       "pepper",
	"bell pepper":        "pepper",
	"jalapeno":           "pepper",
}

// foodCategories assigns a coarse category per canonical name.
var foodCategories = map[string]string{
	"apple": "Fruits", "banana": "Fruits", "orange": "Fruits",
	"lemon": "Fruits", "pear": "Fruits", "grape": "Fruits",
	"strawberry": "Fruits", "watermelon": "Fruits", "pineapple": "Fruits",
	"mango": "Fruits", "avocado": "Fruits", "peach": "Fruits",
	"carrot": "Vegetables", "broccoli": "Vegetables", "potato": "Vegetables",
	"tomato": "Vegetables", "onion": "Vegetables",
	"cucumber": "Vegetables", "lettuce": "Vegetables", "cabbage": "Vegetables",
	"corn": "Vegetables", "celery": "Vegetables", "mushroom": "Vegetables",
	"milk": "Beverages", "juice": "Beverages", "bottle": "Beverages",
	"bread": "Food", "cheese": "Food", "egg": "Food",
	"yogurt": "Dairy",
}

// DefaultCategory is the bucket for identities with no category rule.
const DefaultCategory = "Other"

// normalizeLabel lowercases a raw label and collapses internal whitespace.
func normalizeLabel(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}

// Canonicalize maps a raw label from the vision service to its canonical
// identity. The second return value is false when the label is an excluded
// generic term and must not become an inventory item.
//
// Canonicalization is a pure function of the label and the fixed tables
// above; identical labels always canonicalize identically.
func Canonicalize(raw string) (Identity, bool) {
	name := normalizeLabel(raw)
	if name == "" {
		return Identity{}, false
	}
	if _, excluded := excludedTerms[name]; excluded {
		return Identity{}, false
	}
	if canonical, ok := itemVariants[name]; ok {
		name = canonical
	}
	return Identity{Name: name, Category: categoryFor(name)}, true
}

// categoryFor applies the fixed category rules. The category is a hint for
// the UI and never blocks merging.
func categoryFor(name string) string {
	if strings.Contains(name, "pepper") {
		return "Spices"
	}
	if category, ok := foodCategories[name]; ok {
		return category
	}
	return DefaultCategory
}
