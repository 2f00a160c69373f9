// Package catalog holds the DLC catalog rules shared by the in-memory gateway and the store API:
// category and text filtering, category listing, and the seed catalog.
package catalog

import (
	"strings"

	"dlc_store/internal/models"
)

// AllCategories is the category sentinel meaning "no category filter".
const AllCategories = "all"

// Filter returns the products matching both the category and the search term.
// An empty or "all" category matches every product; category comparison is case-insensitive and exact.
// A non-empty search term must be a case-insensitive substring of the title or the description.
func Filter(products []models.Product, category, search string) []models.Product {
	result := make([]models.Product, 0, len(products))
	for _, product := range products {
		if !matchesCategory(product, category) {
			continue
		}
		if search != "" && !containsFold(product.Title, search) && !containsFold(product.Description, search) {
			continue
		}
		result = append(result, product)
	}
	return result
}

// Search matches the query against title, description and category.
func Search(products []models.Product, query string) []models.Product {
	result := make([]models.Product, 0, len(products))
	for _, product := range products {
		if containsFold(product.Title, query) || containsFold(product.Description, query) || containsFold(product.Category, query) {
			result = append(result, product)
		}
	}
	return result
}

// Categories returns the distinct categories in order of first appearance.
func Categories(products []models.Product) []string {
	seen := make(map[string]struct{}, len(products))
	categories := make([]string, 0, len(products))
	for _, product := range products {
		if _, ok := seen[product.Category]; ok {
			continue
		}
		seen[product.Category] = struct{}{}
		categories = append(categories, product.Category)
	}
	return categories
}

// Find looks a product up by id.
func Find(products []models.Product, id int) (models.Product, bool) {
	for _, product := range products {
		if product.ID == id {
			return product, true
		}
	}
	return models.Product{}, false
}

// WithAll prepends the "all" sentinel to a category list.
func WithAll(categories []string) []string {
	return append([]string{AllCategories}, categories...)
}

func matchesCategory(product models.Product, category string) bool {
	if category == "" || strings.EqualFold(category, AllCategories) {
		return true
	}
	return strings.EqualFold(product.Category, category)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
