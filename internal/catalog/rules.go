package catalog

import (
	"fmt"
	"slices"

	"pudl/internal/metadata"
)

// Foreign key rules
//
// A resource with foreign_key_rules is the owner of one or more field
// tuples. Every other resource holding all fields of a tuple, and not
// listed in exclude, gets a foreign key from those fields to the owner's
// primary key. Tuples map positionally onto the primary key.
//
// Derived keys are pruned: a key that is also reachable by following
// another key of the same resource through the owners' own keys is
// dropped. A table holding (utility_id, plant_name) references plants,
// which references utilities by utility_id, so the direct key to utilities
// is redundant.

func (c *Catalog) checkRules() []error {
	var errs []error
	for _, owner := range sortedKeys(c.rules) {
		r, ok := c.base[owner]
		if !ok {
			continue
		}
		rd := c.rules[owner]
		pk := r.Schema.PrimaryKey
		if len(pk) == 0 {
			errs = append(errs, fmt.Errorf("resource %q: foreign_key_rules require a primary key", owner))
			continue
		}
		for _, fs := range rd.Fields {
			if len(fs) != len(pk) {
				errs = append(errs, fmt.Errorf("resource %q: foreign key rule %v has %d fields, primary key has %d",
					owner, fs, len(fs), len(pk)))
			}
		}
		for _, ex := range rd.Exclude {
			if _, ok := c.base[ex]; !ok {
				errs = append(errs, fmt.Errorf("resource %q: foreign key rule excludes unknown resource %q", owner, ex))
			}
		}
	}
	return errs
}

// foreignKeys derives the rule-based keys among the selected resources.
func (c *Catalog) foreignKeys(names []string) map[string][]metadata.ForeignKey {
	selected := make(map[string]struct{}, len(names))
	for _, n := range names {
		selected[n] = struct{}{}
	}

	// tree[child] lists candidate keys, one per field tuple.
	tree := make(map[string][]metadata.ForeignKey)
	for _, owner := range sortedKeys(c.rules) {
		if _, ok := selected[owner]; !ok {
			continue
		}
		rd := c.rules[owner]
		pk := c.base[owner].Schema.PrimaryKey
		for _, fs := range rd.Fields {
			if len(fs) != len(pk) {
				continue
			}
			for _, child := range names {
				if child == owner || slices.Contains(rd.Exclude, child) {
					continue
				}
				if !containsAll(c.base[child].Schema.FieldNames(), fs) {
					continue
				}
				key := metadata.ForeignKey{
					Fields:    slices.Clone(fs),
					Reference: metadata.ForeignKeyReference{Resource: owner, Fields: slices.Clone(pk)},
				}
				i := slices.IndexFunc(tree[child], func(k metadata.ForeignKey) bool { return slices.Equal(k.Fields, fs) })
				if i >= 0 {
					tree[child][i] = key
				} else {
					tree[child] = append(tree[child], key)
				}
			}
		}
	}

	out := make(map[string][]metadata.ForeignKey, len(tree))
	for _, child := range names {
		var firsts, followed []metadata.ForeignKey
		for _, k := range tree[child] {
			path := traverse(tree, k, map[string]bool{child: true})
			firsts = append(firsts, path[0])
			followed = append(followed, path[1:]...)
		}
		for _, k := range firsts {
			if !slices.ContainsFunc(followed, func(f metadata.ForeignKey) bool { return sameKey(f, k) }) {
				out[child] = append(out[child], k)
			}
		}
	}
	return out
}

// traverse returns k followed by every key reachable from its reference
// whose fields lie within the referenced fields.
func traverse(tree map[string][]metadata.ForeignKey, k metadata.ForeignKey, seen map[string]bool) []metadata.ForeignKey {
	out := []metadata.ForeignKey{k}
	next := k.Reference.Resource
	if seen[next] {
		return out
	}
	seen[next] = true
	defer delete(seen, next)
	for _, nk := range tree[next] {
		if containsAll(k.Reference.Fields, nk.Fields) {
			out = append(out, traverse(tree, nk, seen)...)
		}
	}
	return out
}

func containsAll(have, want []string) bool {
	for _, w := range want {
		if !slices.Contains(have, w) {
			return false
		}
	}
	return true
}

func sameKey(a, b metadata.ForeignKey) bool {
	return a.Reference.Resource == b.Reference.Resource &&
		slices.Equal(a.Fields, b.Fields) &&
		slices.Equal(a.Reference.Fields, b.Reference.Fields)
}
