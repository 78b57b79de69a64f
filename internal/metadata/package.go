package metadata

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"pudl/internal/ddl"
)

// DefaultHomepage is used when a package does not name one.
const DefaultHomepage = "https://catalyst.coop/pudl"

// Package is a named collection of resources with consistent foreign keys.
// Build it with NewPackage.
type Package struct {
	Name        string
	ID          uuid.UUID
	Title       string
	Description string
	Keywords    []string
	Homepage    string
	Created     time.Time
	Resources   []*Resource

	byName map[string]*Resource
}

// PackageOption sets descriptive package metadata.
type PackageOption func(*Package)

// WithTitle sets the package title.
func WithTitle(title string) PackageOption { return func(p *Package) { p.Title = title } }

// WithDescription sets the package description.
func WithDescription(d string) PackageOption { return func(p *Package) { p.Description = d } }

// WithKeywords sets the package keywords.
func WithKeywords(k ...string) PackageOption {
	return func(p *Package) { p.Keywords = slices.Clone(k) }
}

// WithHomepage sets the package homepage.
func WithHomepage(url string) PackageOption { return func(p *Package) { p.Homepage = url } }

// WithID sets a fixed package id instead of a random one.
func WithID(id uuid.UUID) PackageOption { return func(p *Package) { p.ID = id } }

// WithCreated sets the creation time instead of now.
func WithCreated(t time.Time) PackageOption { return func(p *Package) { p.Created = t.UTC() } }

// NewPackage validates the resource graph. Resource names must be unique and
// every foreign key must target a resource of the package that declares a
// primary key containing all referenced fields. Every offending key is
// listed in one SchemaError.
func NewPackage(name string, resources []*Resource, opts ...PackageOption) (*Package, error) {
	p := &Package{
		Name:      name,
		ID:        uuid.New(),
		Homepage:  DefaultHomepage,
		Created:   time.Now().UTC().Truncate(time.Second),
		Resources: slices.Clone(resources),
		byName:    make(map[string]*Resource, len(resources)),
	}
	for _, o := range opts {
		o(p)
	}

	v := violations{subject: "package " + name}
	if name == "" {
		v.subject = "package"
		v.addf("name must not be empty")
	}
	for _, r := range resources {
		if _, dup := p.byName[r.Name]; dup {
			v.addf("resource %q is repeated", r.Name)
			continue
		}
		p.byName[r.Name] = r
	}
	v.list = append(v.list, p.foreignKeyViolations()...)
	if err := v.err(); err != nil {
		return nil, err
	}
	return p, nil
}

// foreignKeyViolations checks every foreign key of every resource.
func (p *Package) foreignKeyViolations() []string {
	var out []string
	for _, r := range p.Resources {
		for _, fk := range r.Schema.ForeignKeys {
			target := fk.Reference.Resource
			tag := fmt.Sprintf("[%s -> %s]", r.Name, target)
			ref, ok := p.byName[target]
			if !ok {
				out = append(out, tag+": reference not found")
				continue
			}
			if len(ref.Schema.PrimaryKey) == 0 {
				out = append(out, tag+": reference missing primary key")
				continue
			}
			var missing []string
			for _, f := range fk.Reference.Fields {
				if !ref.Schema.IsPrimaryKey(f) {
					missing = append(missing, f)
				}
			}
			if len(missing) > 0 {
				out = append(out, fmt.Sprintf("%s: reference primary key missing [%s]", tag, strings.Join(missing, ", ")))
			}
		}
	}
	return out
}

// Resource returns the named resource.
func (p *Package) Resource(name string) (*Resource, bool) {
	r, ok := p.byName[name]
	return r, ok
}

// TopologicalOrder returns the resources so that each one follows every
// resource its foreign keys reference. Independent resources are ordered by
// name and self references are ignored. A reference cycle is an error.
func (p *Package) TopologicalOrder() ([]*Resource, error) {
	indeg := make(map[string]int, len(p.Resources))
	children := make(map[string][]string, len(p.Resources))
	for _, r := range p.Resources {
		indeg[r.Name] += 0
		deps := make(map[string]struct{})
		for _, fk := range r.Schema.ForeignKeys {
			t := fk.Reference.Resource
			if t == r.Name {
				continue
			}
			if _, seen := deps[t]; seen {
				continue
			}
			deps[t] = struct{}{}
			indeg[r.Name]++
			children[t] = append(children[t], r.Name)
		}
	}

	var ready []string
	for name, d := range indeg {
		if d == 0 {
			ready = append(ready, name)
		}
	}
	slices.Sort(ready)

	out := make([]*Resource, 0, len(p.Resources))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		out = append(out, p.byName[name])
		for _, c := range children[name] {
			indeg[c]--
			if indeg[c] == 0 {
				i, _ := slices.BinarySearch(ready, c)
				ready = slices.Insert(ready, i, c)
			}
		}
	}
	if len(out) != len(p.Resources) {
		var stuck []string
		for name, d := range indeg {
			if d > 0 {
				stuck = append(stuck, name)
			}
		}
		slices.Sort(stuck)
		return nil, &SchemaError{
			Subject:    "package " + p.Name,
			Violations: []string{"foreign keys form a cycle among [" + strings.Join(stuck, ", ") + "]"},
		}
	}
	return out, nil
}

// TableDefs returns the storage definitions in topological order.
func (p *Package) TableDefs() ([]ddl.TableDef, error) {
	order, err := p.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	out := make([]ddl.TableDef, len(order))
	for i, r := range order {
		out[i] = r.TableDef()
	}
	return out, nil
}

// MarshalJSON encodes the package as a tabular data package descriptor.
func (p *Package) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name        string      `json:"name"`
		ID          string      `json:"id"`
		Profile     string      `json:"profile"`
		Title       string      `json:"title,omitempty"`
		Description string      `json:"description,omitempty"`
		Keywords    []string    `json:"keywords,omitempty"`
		Homepage    string      `json:"homepage"`
		Created     string      `json:"created"`
		Resources   []*Resource `json:"resources"`
	}{
		Name:        p.Name,
		ID:          p.ID.String(),
		Profile:     "tabular-data-package",
		Title:       p.Title,
		Description: p.Description,
		Keywords:    p.Keywords,
		Homepage:    p.Homepage,
		Created:     p.Created.Format("2006-01-02T15:04:05Z"),
		Resources:   p.Resources,
	})
}
