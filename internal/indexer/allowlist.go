package indexer

import "sort"

// AllowList is the immutable set of collections eligible for indexing. The
// empty list allows every collection.
type AllowList struct {
	names map[string]struct{}
}

func NewAllowList(collections ...string) AllowList {
	names := make(map[string]struct{}, len(collections))
	for _, c := range collections {
		if c != "" {
			names[c] = struct{}{}
		}
	}
	return AllowList{names: names}
}

func (a AllowList) Allows(collection string) bool {
	if len(a.names) == 0 {
		return true
	}
	_, ok := a.names[collection]
	return ok
}

func (a AllowList) All() bool {
	return len(a.names) == 0
}

// Names returns the allowed collections in sorted order.
func (a AllowList) Names() []string {
	out := make([]string, 0, len(a.names))
	for n := range a.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
