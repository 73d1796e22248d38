// Package normalize reshapes record lists into id-indexed lookup tables.
package normalize

// Table is an id-indexed view over a list of records. IDs keeps the order in
// which each id was first seen.
type Table[K comparable, V any] struct {
	ByID map[K]V `json:"byId"`
	IDs  []K     `json:"ids"`
}

// ByKey builds a Table from records using key to derive each id. When an id
// repeats, the later record replaces the earlier one but the id keeps its
// original position.
func ByKey[K comparable, V any](records []V, key func(V) K) Table[K, V] {
	t := Table[K, V]{
		ByID: make(map[K]V, len(records)),
		IDs:  make([]K, 0, len(records)),
	}
	for _, rec := range records {
		id := key(rec)
		if _, seen := t.ByID[id]; !seen {
			t.IDs = append(t.IDs, id)
		}
		t.ByID[id] = rec
	}
	return t
}

// Get returns the record stored under id.
func (t Table[K, V]) Get(id K) (V, bool) {
	v, ok := t.ByID[id]
	return v, ok
}

// Len reports the number of distinct ids.
func (t Table[K, V]) Len() int { return len(t.IDs) }

// Values returns the records in id order, truncated to limit when limit > 0.
func (t Table[K, V]) Values(limit int) []V {
	n := len(t.IDs)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]V, 0, n)
	for _, id := range t.IDs[:n] {
		out = append(out, t.ByID[id])
	}
	return out
}
