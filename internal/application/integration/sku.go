package integration

import (
	"fmt"
	"strings"

	"github.com/erp/equipsync/internal/domain/integration"
)

// SyntheticSKUPrefix prefixes SKUs synthesized from the external id
const SyntheticSKUPrefix = "EXT-"

// skuAttributeKeys are the explicit sku-like attribute spellings, tried in order
var skuAttributeKeys = []string{
	"sku", "SKU", "Sku",
	"sku_code", "SKU_CODE", "skuCode", "SkuCode",
	"item_code", "ItemCode", "itemCode",
	"product_code", "ProductCode", "productCode",
	"part_number", "PartNumber", "partNumber",
}

// DeriveSKU picks the preferred SKU for a feed item: barcode, then an
// explicit sku-like attribute, else EXT-<external_id>.
func DeriveSKU(item *integration.ExternalItem) string {
	if barcode := strings.TrimSpace(item.Barcode); barcode != "" {
		return barcode
	}
	for _, key := range skuAttributeKeys {
		if v, ok := lookupAttribute(item.Attributes, key); ok {
			return v
		}
	}
	return SyntheticSKUPrefix + strings.TrimSpace(item.ExternalID)
}

// DisambiguateSKU returns a SKU not present in known and records it there.
// A colliding SKU gets the external id appended; if that also collides a
// numeric counter is appended until the result is free.
func DisambiguateSKU(sku, externalID string, known map[string]struct{}) string {
	candidate := sku
	if _, taken := known[candidate]; taken {
		candidate = sku + "-" + externalID
		base := candidate
		for n := 2; ; n++ {
			if _, taken := known[candidate]; !taken {
				break
			}
			candidate = fmt.Sprintf("%s-%d", base, n)
		}
	}
	known[candidate] = struct{}{}
	return candidate
}
