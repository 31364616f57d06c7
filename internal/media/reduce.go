package media

// The reducers below never modify their inputs. Each returns a new slice in
// which only the touched items are copied; untouched items share nothing
// mutable with the input because Permatags is copied whenever it changes.

// PatchRating sets the rating of item id. A nil rating clears it.
func PatchRating(items []Item, id int64, rating *int) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	for i := range out {
		if n, ok := out[i].ID.Int64(); ok && n == id {
			if rating == nil {
				out[i].Rating = nil
			} else {
				out[i].Rating = IntPtr(*rating)
			}
		}
	}
	return out
}

// PatchRatings applies the same rating to every id in ids.
func PatchRatings(items []Item, ids []int64, rating *int) []Item {
	out := items
	for _, id := range ids {
		out = PatchRating(out, id, rating)
	}
	return out
}

// AddTag appends an active permatag event to every item in ids.
func AddTag(items []Item, ids []int64, category, keyword string) []Item {
	return appendTagEvent(items, ids, Permatag{Category: category, Keyword: keyword, Signum: SignumActive})
}

// RemoveTag appends a removal marker to every item in ids.
func RemoveTag(items []Item, ids []int64, category, keyword string) []Item {
	return appendTagEvent(items, ids, Permatag{Category: category, Keyword: keyword, Signum: SignumRemoved})
}

func appendTagEvent(items []Item, ids []int64, tag Permatag) []Item {
	want := idSet(ids)
	out := make([]Item, len(items))
	copy(out, items)
	for i := range out {
		n, ok := out[i].ID.Int64()
		if !ok || !want[n] {
			continue
		}
		tags := make([]Permatag, len(out[i].Permatags), len(out[i].Permatags)+1)
		copy(tags, out[i].Permatags)
		out[i].Permatags = append(tags, tag)
	}
	return out
}

// ExcludeIDs drops every item whose id is in ids.
func ExcludeIDs(items []Item, ids []int64) []Item {
	drop := idSet(ids)
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if n, ok := it.ID.Int64(); ok && drop[n] {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Reconcile resolves a locally patched page against a fresh authoritative
// fetch. The backend always wins: optimistic patches are discarded.
func Reconcile(_ []Item, authoritative []Item) []Item {
	out := make([]Item, len(authoritative))
	copy(out, authoritative)
	return out
}

// FindByID returns the item with the given id.
func FindByID(items []Item, id int64) (Item, bool) {
	for _, it := range items {
		if n, ok := it.ID.Int64(); ok && n == id {
			return it, true
		}
	}
	return Item{}, false
}

func idSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
