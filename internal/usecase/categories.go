package usecase

import (
	"sort"
	"strings"
)

// Asset categories for the /category listing. Unlisted assets fall into
// "stocks".
var assetCategories = map[string]string{
	"gold":        "commodities",
	"silver":      "commodities",
	"crudeoil":    "commodities",
	"naturalgas":  "commodities",
	"copper":      "commodities",
	"btc":         "crypto",
	"eth":         "crypto",
	"usdinr":      "forex",
	"eurinr":      "forex",
	"nifty50":     "indices",
	"sensex":      "indices",
	"banknifty":   "indices",
}

const defaultCategory = "stocks"

// CategoryOf returns the category for an asset identifier.
func CategoryOf(asset string) string {
	if c, ok := assetCategories[strings.ToLower(asset)]; ok {
		return c
	}
	return defaultCategory
}

// FilterByCategory returns the subset of assets in the given category, sorted.
func FilterByCategory(assets []string, category string) []string {
	category = strings.ToLower(category)
	out := make([]string, 0, len(assets))
	for _, a := range assets {
		if CategoryOf(a) == category {
			out = append(out, a)
		}
	}
	sort.Strings(out)
	return out
}

// Categories returns the distinct categories present in the asset list, sorted.
func Categories(assets []string) []string {
	seen := make(map[string]struct{})
	for _, a := range assets {
		seen[CategoryOf(a)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
