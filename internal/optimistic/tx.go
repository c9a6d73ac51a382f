package optimistic

import "canvas/internal/domain"

// preImage is the state of one key before the transaction first touched it.
type preImage struct {
	shape   domain.Shape
	existed bool
	index   int
}

// Tx is a transaction log over the cache: the pre-image of every key is
// recorded before its first mutation, so the whole set (or any subset) can
// be put back. Commit simply forgets the pre-images.
type Tx struct {
	cache *Cache
	pre   map[string]preImage
	keys  []string
}

// Begin starts a transaction on c.
func (c *Cache) Begin() *Tx {
	return &Tx{cache: c, pre: make(map[string]preImage)}
}

func (tx *Tx) recordLocked(id string) {
	if _, seen := tx.pre[id]; seen {
		return
	}
	s, ok := tx.cache.shapes[id]
	tx.pre[id] = preImage{shape: s.Clone(), existed: ok, index: tx.cache.indexLocked(id)}
	tx.keys = append(tx.keys, id)
}

func (tx *Tx) putLocked(s domain.Shape) {
	tx.recordLocked(s.ID)
	tx.cache.putLocked(s, -1)
}

func (tx *Tx) removeLocked(id string) {
	tx.recordLocked(id)
	tx.cache.removeLocked(id)
}

// Put writes s into the cache, recording its pre-image first.
func (tx *Tx) Put(s domain.Shape) {
	tx.cache.mu.Lock()
	defer tx.cache.mu.Unlock()
	tx.putLocked(s)
}

// Remove deletes id from the cache, recording its pre-image first.
func (tx *Tx) Remove(id string) {
	tx.cache.mu.Lock()
	defer tx.cache.mu.Unlock()
	tx.removeLocked(id)
}

// Keys lists the touched ids in first-touch order.
func (tx *Tx) Keys() []string {
	return append([]string(nil), tx.keys...)
}

// Commit discards the recorded pre-images.
func (tx *Tx) Commit() {
	tx.cache.mu.Lock()
	defer tx.cache.mu.Unlock()
	tx.pre = make(map[string]preImage)
	tx.keys = nil
}

// Rollback restores every touched key to its pre-image.
func (tx *Tx) Rollback() {
	tx.RollbackKeys(tx.Keys())
}

// RollbackKeys restores only the given keys; the others stay applied.
// Keys are replayed newest first so list positions come back as they were.
func (tx *Tx) RollbackKeys(ids []string) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	tx.cache.mu.Lock()
	defer tx.cache.mu.Unlock()
	var remaining []string
	for i := len(tx.keys) - 1; i >= 0; i-- {
		id := tx.keys[i]
		if !want[id] {
			remaining = append([]string{id}, remaining...)
			continue
		}
		p := tx.pre[id]
		delete(tx.pre, id)
		if p.existed {
			tx.cache.removeLocked(id)
			tx.cache.putLocked(p.shape, p.index)
		} else {
			tx.cache.removeLocked(id)
		}
	}
	tx.keys = remaining
}
