// Package domain holds the core types of the HabitLoop progression engine.
// Pure data and invariants — no infrastructure dependency.
package domain

// Category identifies a progression category. Four core categories carry
// real star-based scaling; mastery and special are extension categories
// that permanently use the fixed fallback path.
type Category string

const (
	CategoryHabits      Category = "habits"
	CategoryJournal     Category = "journal"
	CategoryGoals       Category = "goals"
	CategoryConsistency Category = "consistency"
	CategoryMastery     Category = "mastery"
	CategorySpecial     Category = "special"
)

// CategoryInfo is the single lookup table entry for a category.
// All category→storage-key mapping goes through this table so the
// components can never diverge on keys.
type CategoryInfo struct {
	StorageKey string // Stable key used for durable records
	Core       bool   // Core categories receive star-based scaling
	Order      int    // Deterministic tie-break order
}

var categoryTable = map[Category]CategoryInfo{
	CategoryHabits:      {StorageKey: "cat_habits", Core: true, Order: 0},
	CategoryJournal:     {StorageKey: "cat_journal", Core: true, Order: 1},
	CategoryGoals:       {StorageKey: "cat_goals", Core: true, Order: 2},
	CategoryConsistency: {StorageKey: "cat_consistency", Core: true, Order: 3},
	CategoryMastery:     {StorageKey: "cat_mastery", Core: false, Order: 4},
	CategorySpecial:     {StorageKey: "cat_special", Core: false, Order: 5},
}

// Valid reports whether the category is known.
func (c Category) Valid() bool {
	_, ok := categoryTable[c]
	return ok
}

// Core reports whether the category participates in star-based scaling.
func (c Category) Core() bool {
	return categoryTable[c].Core
}

// StorageKey returns the stable durable-record key for the category.
// Unknown categories map to the empty key.
func (c Category) StorageKey() string {
	return categoryTable[c].StorageKey
}

// Order returns the deterministic tie-break position of the category.
func (c Category) Order() int {
	info, ok := categoryTable[c]
	if !ok {
		return len(categoryTable)
	}
	return info.Order
}

// CoreCategories returns the four core categories in stable order.
func CoreCategories() []Category {
	return []Category{CategoryHabits, CategoryJournal, CategoryGoals, CategoryConsistency}
}

// AllCategories returns every known category in stable order.
func AllCategories() []Category {
	return []Category{
		CategoryHabits, CategoryJournal, CategoryGoals,
		CategoryConsistency, CategoryMastery, CategorySpecial,
	}
}
