package integration

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// priceAttributeKeys is the exact-match precedence list for price extraction
var priceAttributeKeys = []string{
	"price", "Price", "PRICE",
	"unit_price", "Unit_Price", "UnitPrice", "unitPrice", "UNIT_PRICE", "Unit Price",
	"rental_price", "Rental_Price", "RentalPrice", "rentalPrice",
	"cost", "Cost", "COST",
	"unit_cost", "Unit_Cost", "UnitCost", "unitCost", "UNIT_COST", "Unit Cost",
}

// ExtractPrice finds a unit price in a free-form attribute map.
//
// Exact keys from the precedence list are tried first. If none yields a
// number, every key containing "price" or "cost" (case-insensitive) is
// scanned in sorted order and the first numeric-looking value wins. Numbers
// are taken as decoded; price-like strings such as "$12.50" are cleaned of
// everything except digits, '.' and '-' before parsing.
// No match yields zero; this never fails.
func ExtractPrice(attrs map[string]any) decimal.Decimal {
	if len(attrs) == 0 {
		return decimal.Zero
	}

	for _, key := range priceAttributeKeys {
		if price, ok := parsePriceValue(attrs[key]); ok {
			return price
		}
	}

	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "price") || strings.Contains(lower, "cost") {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		if price, ok := parsePriceValue(attrs[key]); ok {
			return price
		}
	}

	return decimal.Zero
}

func parsePriceValue(v any) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case nil:
		return decimal.Zero, false
	case json.Number:
		if d, err := decimal.NewFromString(val.String()); err == nil {
			return d, true
		}
	case float64:
		return decimal.NewFromFloat(val), true
	case float32:
		return decimal.NewFromFloat32(val), true
	case int:
		return decimal.NewFromInt(int64(val)), true
	case int64:
		return decimal.NewFromInt(val), true
	case int32:
		return decimal.NewFromInt32(val), true
	case string:
		// well-formed numbers, exponent notation included, skip cleaning
		if d, err := decimal.NewFromString(strings.TrimSpace(val)); err == nil {
			return d, true
		}
	}

	s, ok := attributeString(v)
	if !ok {
		return decimal.Zero, false
	}
	cleaned := cleanNumeric(s)
	if cleaned == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// cleanNumeric keeps only digits, '.' and '-'
func cleanNumeric(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
