package metadata

import (
	"fmt"

	"pudl/internal/frame"
)

// ReferenceViolation counts child rows whose foreign key tuple is absent
// from the referenced frame.
type ReferenceViolation struct {
	Resource   string
	ForeignKey ForeignKey
	Missing    int
	Examples   [][]any
}

func (v ReferenceViolation) String() string {
	return fmt.Sprintf("%s %s: %d rows reference missing keys", v.Resource, v.ForeignKey, v.Missing)
}

// CheckReferences compares harvested frames along the package's foreign
// keys. Keys whose child or parent frame is absent are skipped, as are child
// tuples containing a null. At most maxExamples missing tuples are kept per
// key.
func CheckReferences(p *Package, frames map[string]*frame.Frame, maxExamples int) []ReferenceViolation {
	var out []ReferenceViolation
	order, err := p.TopologicalOrder()
	if err != nil {
		order = p.Resources
	}
	for _, r := range order {
		child, ok := frames[r.Name]
		if !ok || child == nil {
			continue
		}
		for _, fk := range r.Schema.ForeignKeys {
			parent, ok := frames[fk.Reference.Resource]
			if !ok || parent == nil {
				continue
			}
			keys := keySet(parent, fk.Reference.Fields)
			if keys == nil {
				continue
			}
			v := ReferenceViolation{Resource: r.Name, ForeignKey: fk}
			cix := columnIndexes(child, fk.Fields)
			if cix == nil {
				continue
			}
			var buf []byte
			seen := make(map[string]struct{})
		rows:
			for _, row := range child.Rows {
				tuple := make([]any, len(cix))
				for i, c := range cix {
					if frame.IsNull(row[c]) {
						continue rows
					}
					tuple[i] = row[c]
				}
				buf = frame.AppendKey(buf[:0], tuple)
				if _, ok := keys[string(buf)]; ok {
					continue
				}
				v.Missing++
				if _, dup := seen[string(buf)]; !dup && len(v.Examples) < maxExamples {
					seen[string(buf)] = struct{}{}
					v.Examples = append(v.Examples, tuple)
				}
			}
			if v.Missing > 0 {
				out = append(out, v)
			}
		}
	}
	return out
}

func columnIndexes(f *frame.Frame, names []string) []int {
	ix := make([]int, len(names))
	for i, n := range names {
		ix[i] = f.ColumnIndex(n)
		if ix[i] < 0 {
			return nil
		}
	}
	return ix
}

func keySet(f *frame.Frame, names []string) map[string]struct{} {
	ix := columnIndexes(f, names)
	if ix == nil {
		return nil
	}
	out := make(map[string]struct{}, len(f.Rows))
	var buf []byte
	tuple := make([]any, len(ix))
	for _, row := range f.Rows {
		for i, c := range ix {
			tuple[i] = row[c]
		}
		buf = frame.AppendKey(buf[:0], tuple)
		out[string(buf)] = struct{}{}
	}
	return out
}
