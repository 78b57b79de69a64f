// Package catalog loads resource definitions from YAML files.
//
// A catalog holds a shared field dictionary, named enum sets, named data
// sources and resources. Resources list their fields by dictionary name,
// optionally with resource-specific overrides:
//
//	fields:
//	  report_year: {type: year, description: Four-digit year.}
//	  state: {type: string, constraints: {enum_set: us_states}}
//	resources:
//	  plants:
//	    schema:
//	      fields: [report_year, {name: state, harvest: {aggregate: unique}}]
//	      primary_key: [report_year]
//
// Aggregates are resolved by name through an explicit metadata.Aggregators
// table. Foreign keys are declared per resource or derived from
// foreign_key_rules (see rules.go).
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"pudl/internal/metadata"
)

// document is one catalog file.
type document struct {
	Enums     map[string][]string    `yaml:"enums"`
	Sources   map[string]sourceDoc   `yaml:"sources"`
	Fields    map[string]fieldDoc    `yaml:"fields"`
	Resources map[string]resourceDoc `yaml:"resources"`
}

type sourceDoc struct {
	Title string `yaml:"title"`
	Path  string `yaml:"path"`
	Email string `yaml:"email"`
}

// fieldDoc is a dictionary entry. Inside a resource it is an override, so
// every member is optional.
type fieldDoc struct {
	Type        string          `yaml:"type"`
	Title       *string         `yaml:"title"`
	Format      *string         `yaml:"format"`
	Description *string         `yaml:"description"`
	Constraints *constraintsDoc `yaml:"constraints"`
	Harvest     *harvestDoc     `yaml:"harvest"`
}

type constraintsDoc struct {
	Required bool     `yaml:"required"`
	Unique   bool     `yaml:"unique"`
	Enum     []string `yaml:"enum"`
	EnumSet  string   `yaml:"enum_set"`
}

type harvestDoc struct {
	Aggregate string         `yaml:"aggregate"`
	Options   map[string]any `yaml:"options"`
	Tolerance float64        `yaml:"tolerance"`
}

// fieldRef is a resource field: a bare dictionary name or a mapping with a
// name and overrides.
type fieldRef struct {
	Name string
	fieldDoc
}

func (r *fieldRef) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		r.Name = n.Value
		return nil
	}
	var raw struct {
		Name string   `yaml:"name"`
		Doc  fieldDoc `yaml:",inline"`
	}
	if err := n.Decode(&raw); err != nil {
		return err
	}
	if raw.Name == "" {
		return fmt.Errorf("line %d: field entry needs a name", n.Line)
	}
	r.Name, r.fieldDoc = raw.Name, raw.Doc
	return nil
}

type foreignKeyDoc struct {
	Fields    []string `yaml:"fields"`
	Reference struct {
		Resource string   `yaml:"resource"`
		Fields   []string `yaml:"fields"`
	} `yaml:"reference"`
}

type ruleDoc struct {
	Fields  [][]string `yaml:"fields"`
	Exclude []string   `yaml:"exclude"`
}

type schemaDoc struct {
	Fields          []fieldRef      `yaml:"fields"`
	PrimaryKey      []string        `yaml:"primary_key"`
	MissingValues   []string        `yaml:"missing_values"`
	ForeignKeys     []foreignKeyDoc `yaml:"foreign_keys"`
	ForeignKeyRules *ruleDoc        `yaml:"foreign_key_rules"`
}

type resourceDoc struct {
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	Schema      schemaDoc `yaml:"schema"`
	Harvest     struct {
		Harvest   bool    `yaml:"harvest"`
		Tolerance float64 `yaml:"tolerance"`
	} `yaml:"harvest"`
	Sources   []string `yaml:"sources"`
	Keywords  []string `yaml:"keywords"`
	Group     string   `yaml:"etl_group"`
	Namespace string   `yaml:"field_namespace"`
}

// Catalog is a resolved set of definitions.
type Catalog struct {
	aggs    metadata.Aggregators
	enums   map[string][]string
	sources map[string]metadata.Source
	fields  map[string]metadata.Field
	rules   map[string]ruleDoc

	// base holds validated resources with their declared foreign keys only.
	base  map[string]*metadata.Resource
	names []string
}

// Load reads and merges catalog files. Every problem found is returned,
// joined. A nil aggs means metadata.DefaultAggregators.
func Load(aggs metadata.Aggregators, paths ...string) (*Catalog, error) {
	var docs []document
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		d, err := decode(bytes.NewReader(b))
		if err != nil {
			return nil, fmt.Errorf("catalog: %s: %w", p, err)
		}
		docs = append(docs, d)
	}
	return build(aggs, docs...)
}

// LoadDir loads every *.yaml and *.yml file of dir in name order.
func LoadDir(aggs metadata.Aggregators, dir string) (*Catalog, error) {
	var paths []string
	for _, pat := range []string{"*.yaml", "*.yml"} {
		m, err := filepath.Glob(filepath.Join(dir, pat))
		if err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		paths = append(paths, m...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("catalog: no yaml files in %s", dir)
	}
	slices.Sort(paths)
	return Load(aggs, paths...)
}

// Parse builds a catalog from one in-memory document.
func Parse(aggs metadata.Aggregators, data []byte) (*Catalog, error) {
	d, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return build(aggs, d)
}

func decode(r io.Reader) (document, error) {
	var d document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil && !errors.Is(err, io.EOF) {
		return document{}, err
	}
	return d, nil
}

func build(aggs metadata.Aggregators, docs ...document) (*Catalog, error) {
	if aggs == nil {
		aggs = metadata.DefaultAggregators()
	}
	c := &Catalog{
		aggs:    aggs,
		enums:   make(map[string][]string, len(BuiltinEnums)),
		sources: make(map[string]metadata.Source),
		fields:  make(map[string]metadata.Field),
		rules:   make(map[string]ruleDoc),
		base:    make(map[string]*metadata.Resource),
	}
	for k, v := range BuiltinEnums {
		c.enums[k] = v
	}

	var errs []error
	fieldDocs := make(map[string]fieldDoc)
	resDocs := make(map[string]resourceDoc)
	for _, d := range docs {
		for k, v := range d.Enums {
			c.enums[k] = v
		}
		for k, v := range d.Sources {
			if _, dup := c.sources[k]; dup {
				errs = append(errs, fmt.Errorf("source %q is defined twice", k))
			}
			c.sources[k] = metadata.Source{Title: v.Title, Path: v.Path, Email: v.Email}
		}
		for k, v := range d.Fields {
			if _, dup := fieldDocs[k]; dup {
				errs = append(errs, fmt.Errorf("field %q is defined twice", k))
			}
			fieldDocs[k] = v
		}
		for k, v := range d.Resources {
			if _, dup := resDocs[k]; dup {
				errs = append(errs, fmt.Errorf("resource %q is defined twice", k))
			}
			resDocs[k] = v
		}
	}

	for _, name := range sortedKeys(fieldDocs) {
		f, err := c.resolveField(metadata.Field{Name: name}, fieldDocs[name], true)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.fields[name] = f
	}
	for _, name := range sortedKeys(resDocs) {
		r, err := c.resolveResource(name, resDocs[name])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.base[name] = r
		c.names = append(c.names, name)
		if rd := resDocs[name].Schema.ForeignKeyRules; rd != nil {
			c.rules[name] = *rd
		}
	}
	errs = append(errs, c.checkRules()...)
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return c, nil
}

// resolveField applies d to f. At the dictionary level (base) the type is
// required; inside resources it cannot be changed.
func (c *Catalog) resolveField(f metadata.Field, d fieldDoc, base bool) (metadata.Field, error) {
	switch {
	case base:
		f.Type = metadata.FieldType(d.Type)
	case d.Type != "" && metadata.FieldType(d.Type) != f.Type:
		return f, fmt.Errorf("field %q: type cannot be overridden", f.Name)
	}
	o := metadata.FieldOverrides{Title: d.Title, Description: d.Description}
	if d.Format != nil {
		f.Format = *d.Format
	}
	if cd := d.Constraints; cd != nil {
		cons := metadata.Constraints{Required: cd.Required, Unique: cd.Unique}
		switch {
		case cd.EnumSet != "" && cd.Enum != nil:
			return f, fmt.Errorf("field %q: enum and enum_set are exclusive", f.Name)
		case cd.EnumSet != "":
			set, ok := c.enums[cd.EnumSet]
			if !ok {
				return f, fmt.Errorf("field %q: unknown enum_set %q", f.Name, cd.EnumSet)
			}
			cons.Enum = toAny(set)
		case cd.Enum != nil:
			cons.Enum = toAny(cd.Enum)
		}
		o.Constraints = &cons
	}
	if hd := d.Harvest; hd != nil {
		h := metadata.FieldHarvest{Tolerance: hd.Tolerance}
		if hd.Aggregate != "" {
			fn, err := c.aggs.Resolve(hd.Aggregate, hd.Options)
			if err != nil {
				return f, fmt.Errorf("field %q: %w", f.Name, err)
			}
			h.Aggregate = fn
			h.AggregateName = hd.Aggregate
			h.AggregateOptions = hd.Options
		}
		o.Harvest = &h
	}
	f = f.WithOverrides(o)
	if err := f.Validate(); err != nil {
		return f, err
	}
	return f, nil
}

func (c *Catalog) resolveResource(name string, d resourceDoc) (*metadata.Resource, error) {
	r := metadata.Resource{
		Name:        name,
		Title:       d.Title,
		Description: d.Description,
		Policy:      metadata.ResourceHarvest{Harvest: d.Harvest.Harvest, Tolerance: d.Harvest.Tolerance},
		Keywords:    d.Keywords,
		Group:       d.Group,
		Namespace:   d.Namespace,
		Schema: metadata.Schema{
			PrimaryKey:    d.Schema.PrimaryKey,
			MissingValues: d.Schema.MissingValues,
		},
	}
	var errs []error
	for _, ref := range d.Schema.Fields {
		base, ok := c.fields[ref.Name]
		if !ok {
			errs = append(errs, fmt.Errorf("resource %q: unknown field %q", name, ref.Name))
			continue
		}
		f, err := c.resolveField(base, ref.fieldDoc, false)
		if err != nil {
			errs = append(errs, fmt.Errorf("resource %q: %w", name, err))
			continue
		}
		r.Schema.Fields = append(r.Schema.Fields, f)
	}
	for _, s := range d.Sources {
		src, ok := c.sources[s]
		if !ok {
			errs = append(errs, fmt.Errorf("resource %q: unknown source %q", name, s))
			continue
		}
		r.Sources = append(r.Sources, src)
	}
	for _, k := range d.Schema.ForeignKeys {
		r.Schema.ForeignKeys = append(r.Schema.ForeignKeys, metadata.ForeignKey{
			Fields:    k.Fields,
			Reference: metadata.ForeignKeyReference{Resource: k.Reference.Resource, Fields: k.Reference.Fields},
		})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return metadata.NewResource(r)
}

// Names returns the resource names in order.
func (c *Catalog) Names() []string { return slices.Clone(c.names) }

// Field returns a dictionary field.
func (c *Catalog) Field(name string) (metadata.Field, bool) {
	f, ok := c.fields[name]
	return f, ok
}

// Enum returns a named enum set.
func (c *Catalog) Enum(name string) ([]string, bool) {
	e, ok := c.enums[name]
	return slices.Clone(e), ok
}

// Resource returns the named resource with every foreign key the catalog
// derives for it.
func (c *Catalog) Resource(name string) (*metadata.Resource, error) {
	rs, err := c.resources(c.names)
	if err != nil {
		return nil, err
	}
	for _, r := range rs {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("catalog: unknown resource %q", name)
}

// Package builds a package from the named resources, or from every resource
// when names is empty. Rule-derived foreign keys only target resources of
// the selection; declared foreign keys must resolve within it.
func (c *Catalog) Package(name string, names []string, opts ...metadata.PackageOption) (*metadata.Package, error) {
	if len(names) == 0 {
		names = c.names
	}
	rs, err := c.resources(names)
	if err != nil {
		return nil, err
	}
	return metadata.NewPackage(name, rs, opts...)
}

func (c *Catalog) resources(names []string) ([]*metadata.Resource, error) {
	var unknown []string
	for _, n := range names {
		if _, ok := c.base[n]; !ok {
			unknown = append(unknown, n)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("catalog: unknown resources [%s]", strings.Join(unknown, ", "))
	}
	keys := c.foreignKeys(names)
	out := make([]*metadata.Resource, 0, len(names))
	for _, n := range names {
		b := c.base[n]
		derived := keys[n]
		if len(derived) == 0 {
			out = append(out, b)
			continue
		}
		r := *b
		r.Schema.ForeignKeys = append(slices.Clone(b.Schema.ForeignKeys), derived...)
		nr, err := metadata.NewResource(r)
		if err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		out = append(out, nr)
	}
	return out, nil
}

func toAny(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
