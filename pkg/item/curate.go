package item

// Predicate decides whether an item should be kept during curation.
type Predicate func(*Item) bool

// Curate returns the subsequence of items satisfying the predicate,
// preserving relative order. The input is never modified.
func Curate(items []Item, keep Predicate) []Item {
	out := make([]Item, 0, len(items))
	for i := range items {
		if keep(&items[i]) {
			out = append(out, items[i])
		}
	}
	return out
}

// CurateValid filters out structurally invalid items: messages with no
// content body and function calls with no name.
func CurateValid(items []Item) []Item {
	return Curate(items, (*Item).Valid)
}
