package presenter

import "strconv"

// ResultID identifies a result within one response. Keys may repeat inside a
// response, so the position is part of the identity.
func ResultID(key string, index int) string {
	return key + "_" + strconv.Itoa(index)
}

// Expansion is the set of expanded result cards.
type Expansion struct {
	ids map[string]struct{}
}

// Toggle flips id and reports whether it is now expanded.
func (e *Expansion) Toggle(id string) bool {
	if e.ids == nil {
		e.ids = make(map[string]struct{})
	}
	if _, ok := e.ids[id]; ok {
		delete(e.ids, id)
		return false
	}
	e.ids[id] = struct{}{}
	return true
}

// Expanded reports whether id is expanded.
func (e Expansion) Expanded(id string) bool {
	_, ok := e.ids[id]
	return ok
}

// Len is the number of expanded cards.
func (e Expansion) Len() int { return len(e.ids) }

// Reset collapses everything.
func (e *Expansion) Reset() { e.ids = nil }
