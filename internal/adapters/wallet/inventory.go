package wallet

import "sync"

// Inventory tracks per-player cosmetics and click progress. It backs
// the ownership checks of the redemption flow.
type Inventory struct {
	mu        sync.RWMutex
	cosmetics map[string]map[string]struct{}
	progress  map[string]int64
}

// NewInventory creates an empty inventory store.
func NewInventory() *Inventory {
	return &Inventory{
		cosmetics: make(map[string]map[string]struct{}),
		progress:  make(map[string]int64),
	}
}

// OwnsCosmetic reports whether the player already holds the cosmetic.
func (inv *Inventory) OwnsCosmetic(playerID, cosmetic string) bool {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	_, ok := inv.cosmetics[playerID][cosmetic]
	return ok
}

// GrantCosmetic adds the cosmetic to the player's collection.
func (inv *Inventory) GrantCosmetic(playerID, cosmetic string) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	owned, ok := inv.cosmetics[playerID]
	if !ok {
		owned = make(map[string]struct{})
		inv.cosmetics[playerID] = owned
	}
	owned[cosmetic] = struct{}{}
}

// GrantProgress adds click progress to the player.
func (inv *Inventory) GrantProgress(playerID string, amount int64) {
	if amount <= 0 {
		return
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.progress[playerID] += amount
}

// Progress returns the player's accumulated click progress.
func (inv *Inventory) Progress(playerID string) int64 {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.progress[playerID]
}

// Cosmetics lists the player's cosmetics in no particular order.
func (inv *Inventory) Cosmetics(playerID string) []string {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	out := make([]string, 0, len(inv.cosmetics[playerID]))
	for cosmetic := range inv.cosmetics[playerID] {
		out = append(out, cosmetic)
	}
	return out
}
