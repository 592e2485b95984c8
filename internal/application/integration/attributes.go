package integration

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// attributeString renders a string or numeric attribute value as text.
// Other value kinds (maps, slices, bools, nil) are not usable as scalars.
func attributeString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val), true
	default:
		return "", false
	}
}

// lookupAttribute returns the trimmed, non-empty scalar value under key
func lookupAttribute(attrs map[string]any, key string) (string, bool) {
	raw, ok := attrs[key]
	if !ok {
		return "", false
	}
	s, ok := attributeString(raw)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
