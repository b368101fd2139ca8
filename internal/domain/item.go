package domain

import "fmt"

// ItemKind is the closed set of consumable items the economy reacts to.
// Adding a kind means adding it here and to every exhaustive switch over it.
type ItemKind uint8

const (
	ItemShield       ItemKind = iota + 1 // blocks one attack
	ItemLogicBomb                        // counter-attacks one normal attack
	ItemStreakShield                     // preserves a broken check-in streak once
)

var itemCodes = map[ItemKind]string{
	ItemShield:       "shield",
	ItemLogicBomb:    "logic_bomb",
	ItemStreakShield: "streak_shield",
}

func (k ItemKind) String() string {
	if code, ok := itemCodes[k]; ok {
		return code
	}
	return fmt.Sprintf("item(%d)", uint8(k))
}

func (k ItemKind) Valid() bool {
	_, ok := itemCodes[k]
	return ok
}

// ParseItemKind maps a stored item code back to its kind.
func ParseItemKind(code string) (ItemKind, error) {
	for k, c := range itemCodes {
		if c == code {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown item code %q", code)
}

// Inventory holds owned quantities per item kind.
type Inventory map[ItemKind]int64

func (inv Inventory) Has(k ItemKind) bool {
	return inv[k] > 0
}

// ItemUse consumes exactly one unit of an item.
type ItemUse struct {
	UserID int64
	Kind   ItemKind
}
