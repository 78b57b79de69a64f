package metadata

import (
	"slices"
	"strings"
)

// ForeignKeyReference names the referenced resource and fields.
type ForeignKeyReference struct {
	Resource string   `json:"resource"`
	Fields   []string `json:"fields"`
}

// ForeignKey maps local fields onto the fields of another resource.
type ForeignKey struct {
	Fields    []string            `json:"fields"`
	Reference ForeignKeyReference `json:"reference"`
}

func (k ForeignKey) String() string {
	return "[" + strings.Join(k.Fields, ", ") + "] -> " + k.Reference.Resource +
		"[" + strings.Join(k.Reference.Fields, ", ") + "]"
}

// Schema is the ordered field list of a resource with its keys.
type Schema struct {
	Fields []Field `json:"fields"`
	// MissingValues are the raw strings read as null. Nil means [""].
	MissingValues []string     `json:"missingValues"`
	PrimaryKey    []string     `json:"primaryKey,omitempty"`
	ForeignKeys   []ForeignKey `json:"foreignKeys,omitempty"`
}

// Validate runs the structural checks in order and reports every violation
// in one SchemaError.
func (s Schema) Validate() error {
	v := violations{subject: "schema"}
	for _, f := range s.Fields {
		v.merge(f.Validate())
	}

	names := s.FieldNames()
	v.checkUnique("field name", names)

	distinct := slices.Clone(names)
	slices.Sort(distinct)
	distinct = slices.Compact(distinct)
	if base, dup := duplicateBasename(distinct); dup {
		v.addf("field names contain duplicate basename %q", base)
	}

	known := make(map[string]struct{}, len(names))
	for _, n := range names {
		known[n] = struct{}{}
	}

	v.checkUnique("primary key field", s.PrimaryKey)
	for _, k := range s.PrimaryKey {
		if _, ok := known[k]; !ok {
			v.addf("primary key field %q is not in fields", k)
		}
	}

	for _, fk := range s.ForeignKeys {
		if len(fk.Fields) == 0 {
			v.addf("foreign key %s has no fields", fk)
		}
		if fk.Reference.Resource == "" {
			v.addf("foreign key %s has no reference resource", fk)
		}
		if len(fk.Fields) != len(fk.Reference.Fields) {
			v.addf("foreign key %s has %d fields and %d reference fields", fk, len(fk.Fields), len(fk.Reference.Fields))
		}
		v.checkUnique("foreign key field", fk.Fields)
		v.checkUnique("foreign key reference field", fk.Reference.Fields)
		for _, f := range fk.Fields {
			if _, ok := known[f]; !ok {
				v.addf("foreign key field %q is not in fields", f)
			}
		}
	}
	return v.err()
}

func (v *violations) checkUnique(what string, names []string) {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			v.addf("%s %q is repeated", what, n)
		}
		seen[n] = struct{}{}
	}
}

// FieldNames returns the field names in order.
func (s Schema) FieldNames() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// Field returns the named field.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// IsPrimaryKey reports whether name is a primary key field.
func (s Schema) IsPrimaryKey(name string) bool {
	return slices.Contains(s.PrimaryKey, name)
}

func (s Schema) missingSet() map[string]struct{} {
	mv := s.MissingValues
	if mv == nil {
		mv = []string{""}
	}
	out := make(map[string]struct{}, len(mv))
	for _, m := range mv {
		out[m] = struct{}{}
	}
	return out
}

func (s Schema) clone() Schema {
	out := Schema{
		Fields:        make([]Field, len(s.Fields)),
		MissingValues: slices.Clone(s.MissingValues),
		PrimaryKey:    slices.Clone(s.PrimaryKey),
	}
	for i, f := range s.Fields {
		out.Fields[i] = f.WithOverrides(FieldOverrides{})
	}
	for _, k := range s.ForeignKeys {
		out.ForeignKeys = append(out.ForeignKeys, ForeignKey{
			Fields: slices.Clone(k.Fields),
			Reference: ForeignKeyReference{
				Resource: k.Reference.Resource,
				Fields:   slices.Clone(k.Reference.Fields),
			},
		})
	}
	return out
}
