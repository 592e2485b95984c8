package integration

import (
	"strings"

	"github.com/erp/equipsync/internal/domain/equipment"
)

// unitSynonyms maps lower-cased upstream unit strings to canonical units
var unitSynonyms = map[string]equipment.UnitType{
	"unit": equipment.UnitTypeUnit, "units": equipment.UnitTypeUnit,
	"ea": equipment.UnitTypeUnit, "each": equipment.UnitTypeUnit,
	"pc": equipment.UnitTypeUnit, "pcs": equipment.UnitTypeUnit,
	"piece": equipment.UnitTypeUnit, "pieces": equipment.UnitTypeUnit,
	"item": equipment.UnitTypeUnit, "items": equipment.UnitTypeUnit,
	"qty": equipment.UnitTypeUnit,

	"pair": equipment.UnitTypePair, "pairs": equipment.UnitTypePair, "pr": equipment.UnitTypePair,
	"set": equipment.UnitTypeSet, "sets": equipment.UnitTypeSet, "kit": equipment.UnitTypeSet,
	"box": equipment.UnitTypeBox, "boxes": equipment.UnitTypeBox, "bx": equipment.UnitTypeBox,
	"case": equipment.UnitTypeCase, "cases": equipment.UnitTypeCase, "cs": equipment.UnitTypeCase,
	"pack": equipment.UnitTypePack, "packs": equipment.UnitTypePack, "pk": equipment.UnitTypePack, "pkg": equipment.UnitTypePack,
	"roll": equipment.UnitTypeRoll, "rolls": equipment.UnitTypeRoll, "rl": equipment.UnitTypeRoll,

	"kg": equipment.UnitTypeKilogram, "kgs": equipment.UnitTypeKilogram,
	"kilogram": equipment.UnitTypeKilogram, "kilograms": equipment.UnitTypeKilogram,
	"g": equipment.UnitTypeGram, "gr": equipment.UnitTypeGram, "gram": equipment.UnitTypeGram, "grams": equipment.UnitTypeGram,
	"lb": equipment.UnitTypePound, "lbs": equipment.UnitTypePound, "pound": equipment.UnitTypePound, "pounds": equipment.UnitTypePound,
	"l": equipment.UnitTypeLiter, "ltr": equipment.UnitTypeLiter, "liter": equipment.UnitTypeLiter,
	"liters": equipment.UnitTypeLiter, "litre": equipment.UnitTypeLiter, "litres": equipment.UnitTypeLiter,
	"m": equipment.UnitTypeMeter, "meter": equipment.UnitTypeMeter, "meters": equipment.UnitTypeMeter,
	"metre": equipment.UnitTypeMeter, "metres": equipment.UnitTypeMeter,
	"ft": equipment.UnitTypeFoot, "foot": equipment.UnitTypeFoot, "feet": equipment.UnitTypeFoot,

	"h": equipment.UnitTypeHour, "hr": equipment.UnitTypeHour, "hrs": equipment.UnitTypeHour,
	"hour": equipment.UnitTypeHour, "hours": equipment.UnitTypeHour, "hourly": equipment.UnitTypeHour,
	"d": equipment.UnitTypeDay, "day": equipment.UnitTypeDay, "days": equipment.UnitTypeDay, "daily": equipment.UnitTypeDay,
}

// NormalizeUnit maps an upstream unit-of-measure string to a canonical unit.
// An empty string maps to UNIT and an unrecognized one to OTHER.
func NormalizeUnit(raw string) equipment.UnitType {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return equipment.UnitTypeUnit
	}
	if unit, ok := unitSynonyms[key]; ok {
		return unit
	}
	return equipment.UnitTypeOther
}
