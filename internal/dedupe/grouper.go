// Package dedupe groups row indexes that share a duplicate key.
package dedupe

import "sweeps/pkg/model"

// Grouper accumulates row indexes per key in first-seen order.
// Empty keys never participate in grouping.
type Grouper struct {
	kind    model.GroupKind
	order   []string
	members map[string][]int
}

func NewGrouper(kind model.GroupKind) *Grouper {
	return &Grouper{
		kind:    kind,
		members: make(map[string][]int),
	}
}

func (g *Grouper) Add(key string, index int) {
	if key == "" {
		return
	}
	if _, ok := g.members[key]; !ok {
		g.order = append(g.order, key)
	}
	g.members[key] = append(g.members[key], index)
}

// Groups returns every key seen at least twice, in the order the key first
// appeared. Members keep the order in which they were added.
func (g *Grouper) Groups() []model.DuplicateGroup {
	groups := make([]model.DuplicateGroup, 0)
	for _, key := range g.order {
		idx := g.members[key]
		if len(idx) < 2 {
			continue
		}
		members := make([]int, len(idx))
		copy(members, idx)
		groups = append(groups, model.DuplicateGroup{
			Key:     key,
			Kind:    g.kind,
			Members: members,
		})
	}
	return groups
}

// Group is a convenience wrapper that groups keys by their position.
func Group(kind model.GroupKind, keys []string) []model.DuplicateGroup {
	g := NewGrouper(kind)
	for i, k := range keys {
		g.Add(k, i)
	}
	return g.Groups()
}
