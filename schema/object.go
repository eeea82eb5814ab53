package schema

import "maps"

// Object is a persistent application object. The key is nil until the
// object is stored.
type Object interface {
	Class() *ClassSchema
	Key() any
	SetKey(key any)
	Attr(name string) any
	SetAttr(name string, value any)
}

// Instance is the default Object, keeping attribute values in a map.
type Instance struct {
	class *ClassSchema
	key   any
	attrs map[string]any
}

func (o *Instance) Class() *ClassSchema { return o.class }

func (o *Instance) Key() any { return o.key }

func (o *Instance) SetKey(key any) { o.key = key }

// Attr returns the attribute value, nil when it is not set.
func (o *Instance) Attr(name string) any {
	return o.attrs[name]
}

func (o *Instance) SetAttr(name string, value any) {
	if o.attrs == nil {
		o.attrs = map[string]any{}
	}
	o.attrs[name] = value
}

// Attrs returns a copy of all attribute values.
func (o *Instance) Attrs() map[string]any {
	return maps.Clone(o.attrs)
}

var _ Object = (*Instance)(nil)
