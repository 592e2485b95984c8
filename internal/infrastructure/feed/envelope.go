package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/erp/equipsync/internal/domain/integration"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Page envelope
// ---------------------------------------------------------------------------

// page is one decoded listing response
type page struct {
	Items      []integration.ExternalItem
	NextCursor string
	// HasMore is nil when the response carried no more-pages flag
	HasMore *bool
	Shape   string
}

// envelopeShape is one known response layout. Shapes are tried in order
// and the first structural match wins.
type envelopeShape struct {
	name string
	// items returns the raw item array and the object holding pagination
	// metadata, or ok=false if the body does not have this layout
	items func(body []byte) (raw []json.RawMessage, meta map[string]json.RawMessage, ok bool)
}

var envelopeShapes = []envelopeShape{
	{name: "array", items: bareArray},
	{name: "items", items: keyedArray("items")},
	{name: "data", items: keyedArray("data")},
	{name: "results", items: keyedArray("results")},
	{name: "inventory", items: keyedArray("inventory")},
	{name: "data.items", items: nestedArray("data", "items")},
}

var (
	cursorKeys  = []string{"cursor", "next_cursor", "nextCursor"}
	hasMoreKeys = []string{"has_more", "hasMore", "more"}
	// metaKeys are objects that may hold pagination fields instead of the top level
	metaKeys = []string{"pagination", "meta", "paging"}
)

func bareArray(body []byte) ([]json.RawMessage, map[string]json.RawMessage, bool) {
	if len(body) == 0 || body[0] != '[' {
		return nil, nil, false
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, nil, false
	}
	return raw, nil, true
}

func keyedArray(key string) func([]byte) ([]json.RawMessage, map[string]json.RawMessage, bool) {
	return func(body []byte) ([]json.RawMessage, map[string]json.RawMessage, bool) {
		obj, ok := asObject(body)
		if !ok {
			return nil, nil, false
		}
		raw, ok := asArray(obj[key])
		if !ok {
			return nil, nil, false
		}
		return raw, obj, true
	}
}

func nestedArray(outer, inner string) func([]byte) ([]json.RawMessage, map[string]json.RawMessage, bool) {
	return func(body []byte) ([]json.RawMessage, map[string]json.RawMessage, bool) {
		obj, ok := asObject(body)
		if !ok {
			return nil, nil, false
		}
		nested, ok := asObject(obj[outer])
		if !ok {
			return nil, nil, false
		}
		raw, ok := asArray(nested[inner])
		if !ok {
			return nil, nil, false
		}
		// pagination may sit beside the items or at the top level
		meta := make(map[string]json.RawMessage, len(obj)+len(nested))
		for k, v := range obj {
			meta[k] = v
		}
		for k, v := range nested {
			meta[k] = v
		}
		return raw, meta, true
	}
}

func asObject(raw []byte) (map[string]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// asArray accepts a JSON array, or null as an empty array
func asArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, false
	}
	if string(raw) == "null" {
		return []json.RawMessage{}, true
	}
	if raw[0] != '[' {
		return nil, false
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, false
	}
	return arr, true
}

// decodePage matches the body against the known shapes and normalizes it.
// Individual items that fail to decode carry DecodeErr instead of failing
// the page.
func decodePage(body []byte) (*page, error) {
	body = bytes.TrimSpace(body)
	for _, shape := range envelopeShapes {
		raw, meta, ok := shape.items(body)
		if !ok {
			continue
		}
		p := &page{
			Items: make([]integration.ExternalItem, 0, len(raw)),
			Shape: shape.name,
		}
		for _, r := range raw {
			p.Items = append(p.Items, decodeItem(r))
		}
		if meta != nil {
			p.NextCursor = findCursor(meta)
			p.HasMore = findHasMore(meta)
		}
		return p, nil
	}
	return nil, fmt.Errorf("%w: body matches no known envelope", integration.ErrInvalidFeedResponse)
}

func findCursor(meta map[string]json.RawMessage) string {
	for _, obj := range metaObjects(meta) {
		for _, key := range cursorKeys {
			if s, ok := scalarString(obj[key]); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func findHasMore(meta map[string]json.RawMessage) *bool {
	for _, obj := range metaObjects(meta) {
		for _, key := range hasMoreKeys {
			var b bool
			if raw, ok := obj[key]; ok && json.Unmarshal(raw, &b) == nil {
				return &b
			}
		}
	}
	return nil
}

// metaObjects returns the top-level object followed by any nested pagination objects
func metaObjects(meta map[string]json.RawMessage) []map[string]json.RawMessage {
	out := []map[string]json.RawMessage{meta}
	for _, key := range metaKeys {
		if nested, ok := asObject(meta[key]); ok {
			out = append(out, nested)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

var (
	errItemNotObject   = errors.New("item is not a JSON object")
	errItemBadQuantity = errors.New("invalid location quantity")
)

var (
	idKeys         = []string{"id", "external_id", "item_id"}
	nameKeys       = []string{"name", "title"}
	barcodeKeys    = []string{"barcode", "upc", "ean"}
	memoKeys       = []string{"memo", "description", "notes"}
	photoKeys      = []string{"photo_url", "photoUrl", "image_url", "imageUrl"}
	unitKeys       = []string{"unit_of_measure", "unitOfMeasure", "unit", "uom"}
	locationsKeys  = []string{"locations", "quantities", "stock"}
	locationIDKeys = []string{"location_id", "locationId", "location"}
	quantityKeys   = []string{"quantity", "qty", "on_hand"}
)

func decodeItem(raw json.RawMessage) integration.ExternalItem {
	obj, ok := asObject(raw)
	if !ok {
		return integration.ExternalItem{DecodeErr: errItemNotObject}
	}

	item := integration.ExternalItem{
		ExternalID:    firstString(obj, idKeys),
		Name:          firstString(obj, nameKeys),
		Barcode:       firstString(obj, barcodeKeys),
		Memo:          firstString(obj, memoKeys),
		PhotoURL:      firstString(obj, photoKeys),
		UnitOfMeasure: firstString(obj, unitKeys),
		Attributes:    decodeAttributes(obj["attributes"]),
	}
	if item.ExternalID == "" {
		item.DecodeErr = errors.New("item has no id")
		return item
	}

	// a top-level sku is an explicit sku-like attribute, ranked after barcode
	if sku := firstString(obj, []string{"sku"}); sku != "" {
		if _, exists := item.Attributes["sku"]; !exists {
			item.Attributes["sku"] = sku
		}
	}

	quantities, err := decodeLocations(obj)
	if err != nil {
		item.DecodeErr = err
		return item
	}
	item.Quantities = quantities
	return item
}

func decodeAttributes(raw json.RawMessage) map[string]any {
	attrs := make(map[string]any)
	if _, ok := asObject(raw); !ok {
		return attrs
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&attrs); err != nil {
		return make(map[string]any)
	}
	return attrs
}

func decodeLocations(obj map[string]json.RawMessage) ([]integration.LocationQuantity, error) {
	for _, key := range locationsKeys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		entries, ok := asArray(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a list", errItemBadQuantity, key)
		}
		out := make([]integration.LocationQuantity, 0, len(entries))
		for _, entry := range entries {
			loc, ok := asObject(entry)
			if !ok {
				return nil, fmt.Errorf("%w: entry is not an object", errItemBadQuantity)
			}
			qty, err := decimalValue(firstRaw(loc, quantityKeys))
			if err != nil {
				return nil, fmt.Errorf("%w: %v", errItemBadQuantity, err)
			}
			out = append(out, integration.LocationQuantity{
				LocationID: firstString(loc, locationIDKeys),
				Quantity:   qty,
			})
		}
		return out, nil
	}
	return nil, nil
}

// decimalValue parses a JSON number or numeric string; absent or null is zero
func decimalValue(raw json.RawMessage) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Zero, nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

func firstRaw(obj map[string]json.RawMessage, keys []string) json.RawMessage {
	for _, key := range keys {
		if raw, ok := obj[key]; ok {
			return raw
		}
	}
	return nil
}

func firstString(obj map[string]json.RawMessage, keys []string) string {
	for _, key := range keys {
		if s, ok := scalarString(obj[key]); ok && s != "" {
			return s
		}
	}
	return ""
}

// scalarString renders a JSON string or number as text
func scalarString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch {
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return strings.TrimSpace(s), true
	case raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9'):
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", false
		}
		return n.String(), true
	default:
		return "", false
	}
}
