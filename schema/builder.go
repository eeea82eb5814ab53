package schema

// Builder assembles a ClassSchema from base classes and declarative column
// specs. The zero Builder is not usable, start with NewBuilder.
//
//	order, err := schema.NewBuilder("Order").
//		Relation("order").
//		Column(schema.ColumnSpec{Attr: "no"}).
//		Column(schema.ColumnSpec{Attr: "finished"}).
//		Build()
type Builder struct {
	name  string
	opts  []Option
	specs []ColumnSpec
}

func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

func (b *Builder) Relation(relation string) *Builder {
	b.opts = append(b.opts, WithRelation(relation))
	return b
}

func (b *Builder) Sequencer(sequencer string) *Builder {
	b.opts = append(b.opts, WithSequencer(sequencer))
	return b
}

func (b *Builder) Bases(bases ...*ClassSchema) *Builder {
	b.opts = append(b.opts, WithBases(bases...))
	return b
}

func (b *Builder) Module(module string) *Builder {
	b.opts = append(b.opts, WithModule(module))
	return b
}

func (b *Builder) Defaults(defaults map[string]any) *Builder {
	b.opts = append(b.opts, WithDefaults(defaults))
	return b
}

func (b *Builder) Column(spec ColumnSpec) *Builder {
	b.specs = append(b.specs, spec)
	return b
}

// Build configures the class and adds the declared columns in order. The
// first failing column aborts the build.
func (b *Builder) Build() (*ClassSchema, error) {
	c, err := New(b.name, b.opts...)
	if err != nil {
		return nil, err
	}
	for _, spec := range b.specs {
		if _, err := c.AddColumn(spec); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustBuild is like Build but panics on error. Meant for package level
// class declarations.
func (b *Builder) MustBuild() *ClassSchema {
	c, err := b.Build()
	if err != nil {
		panic(err)
	}
	return c
}
