package recipe

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"recipebook-backend/domain"
)

// GenerateShoppingListText renders the downloadable shopping list. Recipe
// names come first, then the aggregated products with one line per
// ingredient and unit.
func GenerateShoppingListText(now time.Time, recipeNames []string, items []domain.ShoppingListItem) string {
	lines := make([]string, 0, len(recipeNames)+len(items)+4)

	lines = append(lines, fmt.Sprintf("Shopping list from %s", now.Format("2006-01-02 15:04")))
	lines = append(lines, "Recipes:")
	for i, name := range recipeNames {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, name))
	}

	lines = append(lines, "")
	lines = append(lines, "Products:")
	for i, item := range items {
		lines = append(lines, fmt.Sprintf("%d. %s: %d %s", i+1, capitalize(item.Name), item.Amount, item.MeasurementUnit))
	}

	return strings.Join(lines, "\n") + "\n"
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
