package object

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/objgraph/internal/schema"
)

// PropertyKind classifies entity properties.
type PropertyKind int

const (
	AttributeProperty PropertyKind = iota
	ToOneProperty
	ToManyProperty
)

func (k PropertyKind) String() string {
	switch k {
	case AttributeProperty:
		return "attribute"
	case ToOneProperty:
		return "to-one"
	case ToManyProperty:
		return "to-many"
	}
	return fmt.Sprintf("PropertyKind(%d)", int(k))
}

// Property is an attribute or relationship of a ClassDescriptor.
type Property struct {
	name         string
	kind         PropertyKind
	attribute    *schema.ObjAttribute
	relationship *schema.ObjRelationship
	owner        *ClassDescriptor
}

func (p *Property) Name() string                          { return p.name }
func (p *Property) Kind() PropertyKind                    { return p.kind }
func (p *Property) Attribute() *schema.ObjAttribute       { return p.attribute }
func (p *Property) Relationship() *schema.ObjRelationship { return p.relationship }
func (p *Property) Descriptor() *ClassDescriptor          { return p.owner }

// IsRelationship reports whether p is a to-one or to-many property.
func (p *Property) IsRelationship() bool { return p.kind != AttributeProperty }

// TargetDescriptor returns the descriptor of the relationship target.
func (p *Property) TargetDescriptor() *ClassDescriptor {
	if p.relationship == nil {
		return nil
	}
	return p.owner.registry.Descriptor(p.relationship.TargetEntityName)
}

// ReverseProperty returns the target's property for the reverse
// relationship, or nil.
func (p *Property) ReverseProperty() *Property {
	if p.relationship == nil {
		return nil
	}
	rev := p.relationship.ReverseRelationship()
	target := p.TargetDescriptor()
	if rev == nil || target == nil {
		return nil
	}
	return target.Property(rev.Name)
}

// ReadDirectly returns the stored value of p on o.
func (p *Property) ReadDirectly(o Persistent) any { return o.ReadPropertyDirectly(p.name) }

// WriteDirectly stores the value of p on o.
func (p *Property) WriteDirectly(o Persistent, value any) { o.WritePropertyDirectly(p.name, value) }

// IsFault reports whether p is unresolved on o.
func (p *Property) IsFault(o Persistent) bool {
	v := o.ReadPropertyDirectly(p.name)
	switch p.kind {
	case ToOneProperty:
		_, ok := v.(Fault)
		return ok
	case ToManyProperty:
		if v == nil {
			return true
		}
		if h, ok := v.(ValueHolder); ok {
			return h.IsFault()
		}
	}
	return false
}

// Read returns the value of p on o, resolving a to-one fault and storing
// its result.
func (p *Property) Read(ctx context.Context, o Persistent) (any, error) {
	v := o.ReadPropertyDirectly(p.name)
	switch p.kind {
	case ToOneProperty:
		if f, ok := v.(Fault); ok {
			resolved, err := f.ResolveFault(ctx, o, p.name)
			if err != nil {
				return nil, err
			}
			o.WritePropertyDirectly(p.name, resolved)
			return resolved, nil
		}
	case ToManyProperty:
		if v == nil {
			return p.ToManyHolder(o), nil
		}
	}
	return v, nil
}

// ToManyHolder returns the to-many holder of p on o, injecting a fresh one
// when none is set.
func (p *Property) ToManyHolder(o Persistent) ToManyHolder {
	if h, ok := o.ReadPropertyDirectly(p.name).(ToManyHolder); ok {
		return h
	}
	factory := p.owner.registry.ToManyFactory
	if factory == nil {
		return nil
	}
	h := factory(o, p.name)
	o.WritePropertyDirectly(p.name, h)
	return h
}

// ClassDescriptor exposes the properties of an ObjEntity.
type ClassDescriptor struct {
	entity   *schema.ObjEntity
	props    []*Property
	index    map[string]*Property
	registry *DescriptorRegistry
}

// Entity returns the described entity.
func (d *ClassDescriptor) Entity() *schema.ObjEntity { return d.entity }

// Registry returns the registry that built d.
func (d *ClassDescriptor) Registry() *DescriptorRegistry { return d.registry }

// Property returns a property by name, or nil.
func (d *ClassDescriptor) Property(name string) *Property { return d.index[name] }

// Properties returns attributes first, then relationships, each in
// declaration order.
func (d *ClassDescriptor) Properties() []*Property { return d.props }

// NewObject returns a TRANSIENT instance of the entity.
func (d *ClassDescriptor) NewObject() *DataObject { return NewDataObject(d.entity.Name) }

// InjectValueHolders sets fresh holders on every unset to-many property
// and fault placeholders on every unset to-one property of a fetched
// object.
func (d *ClassDescriptor) InjectValueHolders(o Persistent, toOneFaults bool) {
	for _, p := range d.props {
		switch p.kind {
		case ToManyProperty:
			p.ToManyHolder(o)
		case ToOneProperty:
			if toOneFaults && d.registry.ToOneFault != nil && o.ReadPropertyDirectly(p.name) == nil {
				o.WritePropertyDirectly(p.name, d.registry.ToOneFault)
			}
		}
	}
}

// ShallowMerge copies attribute values from one object to another.
func (d *ClassDescriptor) ShallowMerge(from, to Persistent) {
	for _, p := range d.props {
		if p.kind == AttributeProperty {
			to.WritePropertyDirectly(p.name, from.ReadPropertyDirectly(p.name))
		}
	}
}

// DescriptorRegistry builds ClassDescriptors on demand.
type DescriptorRegistry struct {
	resolver *schema.EntityResolver

	// ToManyFactory creates the holder of an unresolved to-many property.
	ToManyFactory func(owner Persistent, relationship string) ToManyHolder

	// ToOneFault is stored in unresolved to-one properties.
	ToOneFault Fault

	mu          sync.Mutex
	descriptors map[string]*ClassDescriptor
}

// NewDescriptorRegistry returns a registry over resolver.
func NewDescriptorRegistry(resolver *schema.EntityResolver) *DescriptorRegistry {
	return &DescriptorRegistry{resolver: resolver, descriptors: make(map[string]*ClassDescriptor)}
}

// Resolver returns the namespace the registry describes.
func (r *DescriptorRegistry) Resolver() *schema.EntityResolver { return r.resolver }

// Descriptor returns the descriptor of the named entity, or nil.
func (r *DescriptorRegistry) Descriptor(entity string) *ClassDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.descriptors[entity]; ok {
		return d
	}
	e := r.resolver.ObjEntity(entity)
	if e == nil {
		return nil
	}
	d := &ClassDescriptor{entity: e, index: make(map[string]*Property), registry: r}
	for _, a := range e.Attributes() {
		d.add(&Property{name: a.Name, kind: AttributeProperty, attribute: a})
	}
	for _, rel := range e.Relationships() {
		kind := ToOneProperty
		if rel.IsToMany() {
			kind = ToManyProperty
		}
		d.add(&Property{name: rel.Name, kind: kind, relationship: rel})
	}
	r.descriptors[entity] = d
	return d
}

func (d *ClassDescriptor) add(p *Property) {
	p.owner = d
	d.props = append(d.props, p)
	d.index[p.name] = p
}
