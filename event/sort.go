package event

import "bytes"

// Descending sorts events newest first, events with the same created_at are
// ordered by ID ascending so the order is total.
type Descending []*T

func (e Descending) Len() int      { return len(e) }
func (e Descending) Swap(i, j int) { e[i], e[j] = e[j], e[i] }
func (e Descending) Less(i, j int) bool {
	a, b := e[i].CreatedAt.I64(), e[j].CreatedAt.I64()
	if a != b {
		return a > b
	}
	return bytes.Compare(e[i].ID, e[j].ID) < 0
}

// Compare is the Descending order as a comparison function.
func Compare(a, b *T) int {
	x, y := a.CreatedAt.I64(), b.CreatedAt.I64()
	switch {
	case x > y:
		return -1
	case x < y:
		return 1
	}
	return bytes.Compare(a.ID, b.ID)
}
