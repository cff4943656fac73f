package cart

import (
	"encoding/json"
	"sort"
)

// identityKey is the merge identity of a line item: product plus its serialized
// modifier list. With sorted unset the list order is significant, so the same
// modifiers picked in a different order produce a separate line.
func identityKey(item CartItem, sorted bool) string {
	mods := item.Modifiers
	if mods == nil {
		mods = []CartModifier{}
	}
	if sorted && len(mods) > 1 {
		mods = append([]CartModifier(nil), mods...)
		sort.SliceStable(mods, func(i, j int) bool {
			if mods[i].ModifierID != mods[j].ModifierID {
				return mods[i].ModifierID < mods[j].ModifierID
			}
			if mods[i].Name != mods[j].Name {
				return mods[i].Name < mods[j].Name
			}
			return mods[i].Price.LessThan(mods[j].Price)
		})
	}
	encoded, _ := json.Marshal(mods)
	return item.ProductID + "\x00" + string(encoded)
}
