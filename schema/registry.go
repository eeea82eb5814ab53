package schema

// Registry keeps the configured classes of an application by name.
type Registry struct {
	classes []*ClassSchema
	byName  map[string]*ClassSchema
}

func NewRegistry() *Registry {
	return &Registry{byName: map[string]*ClassSchema{}}
}

// Register adds classes in the given order. Class names are unique.
func (r *Registry) Register(classes ...*ClassSchema) error {
	for _, c := range classes {
		if _, ok := r.byName[c.Name]; ok {
			return &SchemaError{Class: c.Name, Msg: "class already registered"}
		}
		r.byName[c.Name] = c
		r.classes = append(r.classes, c)
	}
	return nil
}

func (r *Registry) Lookup(name string) (*ClassSchema, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// Classes returns the registered classes in registration order.
func (r *Registry) Classes() []*ClassSchema {
	return append([]*ClassSchema(nil), r.classes...)
}

func (r *Registry) Len() int {
	return len(r.classes)
}
