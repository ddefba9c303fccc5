package value

import "sort"

type tableEntry struct {
	key Value
	val Value
}

// Table is a mapping of values to values with total-order keys. Entries
// are kept sorted under Compare, so iteration visits keys in order and
// NextAfter can resume from the last visited key.
type Table struct {
	objHeader
	entries []tableEntry
}

func (t *Table) search(key Value) (int, bool) {
	i := sort.Search(len(t.entries), func(i int) bool {
		return Compare(t.entries[i].key, key) >= 0
	})
	if i < len(t.entries) && Compare(t.entries[i].key, key) == 0 {
		return i, true
	}
	return i, false
}

// Get returns the value for key, or nil and false when absent.
func (t *Table) Get(key Value) (Value, bool) {
	if i, ok := t.search(key); ok {
		return t.entries[i].val, true
	}
	return Nil(), false
}

// Set inserts or replaces the entry for key, keeping the order intact.
func (t *Table) Set(key, val Value) {
	i, ok := t.search(key)
	if ok {
		t.entries[i].val = val
		return
	}
	t.entries = append(t.entries, tableEntry{})
	copy(t.entries[i+1:], t.entries[i:])
	t.entries[i] = tableEntry{key: key, val: val}
}

// Delete removes the entry for key if present.
func (t *Table) Delete(key Value) {
	if i, ok := t.search(key); ok {
		t.entries = append(t.entries[:i], t.entries[i+1:]...)
	}
}

// Len is the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// NextAfter returns the first entry whose key is strictly greater than
// last, or ok=false when exhausted. A nil last starts from the beginning.
func (t *Table) NextAfter(last Value) (key, val Value, ok bool) {
	if len(t.entries) == 0 {
		return Nil(), Nil(), false
	}
	i := 0
	if !last.IsNil() {
		i = sort.Search(len(t.entries), func(i int) bool {
			return Compare(t.entries[i].key, last) > 0
		})
	}
	if i >= len(t.entries) {
		return Nil(), Nil(), false
	}
	return t.entries[i].key, t.entries[i].val, true
}

// Entries iterates the table in key order.
func (t *Table) Entries(fn func(key, val Value) bool) {
	for _, e := range t.entries {
		if !fn(e.key, e.val) {
			return
		}
	}
}
