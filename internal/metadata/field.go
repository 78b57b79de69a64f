package metadata

import (
	"slices"
	"time"

	"pudl/internal/ddl"
	"pudl/internal/frame"
)

// FieldType is the semantic type of a field.
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeInteger  FieldType = "integer"
	TypeYear     FieldType = "year"
	TypeDate     FieldType = "date"
	TypeDatetime FieldType = "datetime"
	TypeFloat    FieldType = "float"
	TypeBoolean  FieldType = "boolean"
)

var fieldTypes = map[FieldType]struct {
	kind    frame.Kind
	storage ddl.Type
}{
	TypeString:   {frame.String, ddl.TypeText},
	TypeInteger:  {frame.Int, ddl.TypeInteger},
	TypeYear:     {frame.Time, ddl.TypeInteger},
	TypeDate:     {frame.Time, ddl.TypeDate},
	TypeDatetime: {frame.Time, ddl.TypeTimestamp},
	TypeFloat:    {frame.Float, ddl.TypeFloat},
	TypeBoolean:  {frame.Bool, ddl.TypeBoolean},
}

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	_, ok := fieldTypes[t]
	return ok
}

// Kind is the frame value kind that holds values of type t. Years are held
// as the first instant of the year.
func (t FieldType) Kind() frame.Kind { return fieldTypes[t].kind }

// Constraints restrict the values of a field.
type Constraints struct {
	Required bool  `json:"required,omitempty" yaml:"required"`
	Unique   bool  `json:"unique,omitempty" yaml:"unique"`
	Enum     []any `json:"enum,omitempty" yaml:"enum"`
}

// EnumStrings returns the enum values of a validated string field.
func (c Constraints) EnumStrings() []string {
	out := make([]string, 0, len(c.Enum))
	for _, v := range c.Enum {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// FieldHarvest is the harvest policy of a field.
type FieldHarvest struct {
	// Aggregate reduces the values of one key group. Nil means the default,
	// MostAndMoreFrequent(DefaultMinFrequency).
	Aggregate AggregateFunc `json:"-"`
	// AggregateName and AggregateOptions name Aggregate in the descriptor
	// when it was resolved from an Aggregators set.
	AggregateName    string         `json:"aggregate,omitempty"`
	AggregateOptions map[string]any `json:"aggregateOptions,omitempty"`
	// Tolerance is the largest fraction of invalid groups for which the
	// field is still valid.
	Tolerance float64 `json:"tolerance"`
}

// Field is a single column descriptor.
type Field struct {
	Name        string       `json:"name"`
	Type        FieldType    `json:"type"`
	Title       string       `json:"title,omitempty"`
	Format      string       `json:"format,omitempty"`
	Description string       `json:"description,omitempty"`
	Constraints Constraints  `json:"constraints,omitempty"`
	Harvest     FieldHarvest `json:"harvest"`
}

// Validate checks the field on its own.
func (f Field) Validate() error {
	v := violations{subject: "field " + f.Name}
	if f.Name == "" {
		v.subject = "field"
		v.addf("name must not be empty")
	}
	if !f.Type.Valid() {
		v.addf("unsupported type %q", f.Type)
	}
	if enum := f.Constraints.Enum; enum != nil {
		if f.Type != TypeString {
			v.addf("enum is only allowed for string fields, not %q", f.Type)
		}
		if len(enum) == 0 {
			v.addf("enum must not be empty")
		}
		seen := make(map[string]struct{}, len(enum))
		for _, e := range enum {
			s, ok := e.(string)
			if !ok {
				v.addf("enum value %v (%T) is not a string", e, e)
				continue
			}
			if _, dup := seen[s]; dup {
				v.addf("enum value %q is repeated", s)
			}
			seen[s] = struct{}{}
		}
	}
	if t := f.Harvest.Tolerance; t < 0 || t > 1 {
		v.addf("harvest tolerance %v is outside [0, 1]", t)
	}
	return v.err()
}

// aggregate returns the configured aggregate or the default.
func (f Field) aggregate() AggregateFunc {
	if f.Harvest.Aggregate != nil {
		return f.Harvest.Aggregate
	}
	return defaultAggregate
}

// Column maps the field to its storage column.
func (f Field) Column() ddl.ColumnDef {
	c := ddl.ColumnDef{
		Name:     f.Name,
		Type:     fieldTypes[f.Type].storage,
		Nullable: !f.Constraints.Required,
		Unique:   f.Constraints.Unique,
		Comment:  f.Description,
	}
	if f.Constraints.Enum != nil {
		c.Enum = f.Constraints.EnumStrings()
	}
	return c
}

// StorageValue converts a formatted value to its column value. Years are
// stored as integers; everything else passes through.
func (f Field) StorageValue(v any) any {
	if t, ok := v.(time.Time); ok && f.Type == TypeYear {
		return int64(t.Year())
	}
	return v
}

// FrameColumn is the frame column that holds the field's values.
func (f Field) FrameColumn() frame.Column {
	return frame.Column{Name: f.Name, Kind: f.Type.Kind()}
}

// FieldOverrides are the resource-specific changes applied by WithOverrides.
// Nil members leave the field unchanged.
type FieldOverrides struct {
	Title       *string
	Description *string
	Constraints *Constraints
	Harvest     *FieldHarvest
}

// WithOverrides returns a copy of f specialized by o. f is not modified.
func (f Field) WithOverrides(o FieldOverrides) Field {
	out := f
	if o.Title != nil {
		out.Title = *o.Title
	}
	if o.Description != nil {
		out.Description = *o.Description
	}
	if o.Constraints != nil {
		out.Constraints = *o.Constraints
	}
	if o.Harvest != nil {
		out.Harvest = *o.Harvest
	}
	if out.Constraints.Enum != nil {
		out.Constraints.Enum = slices.Clone(out.Constraints.Enum)
	}
	return out
}
