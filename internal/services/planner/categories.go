package planner

// Category is a vehicle category option
type Category struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

var categories = []Category{
	{Label: "I", Value: 0},
	{Label: "II", Value: 1},
	{Label: "III", Value: 2},
	{Label: "IV", Value: 3},
	{Label: "V", Value: 4},
}

// Categories returns the selectable vehicle categories in display order
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ValidCategory reports whether v is one of the option values
func ValidCategory(v int) bool {
	for _, c := range categories {
		if c.Value == v {
			return true
		}
	}
	return false
}

// CategoryLabel returns the roman numeral label for v
func CategoryLabel(v int) (string, bool) {
	for _, c := range categories {
		if c.Value == v {
			return c.Label, true
		}
	}
	return "", false
}
