package object

import (
	"context"
	"fmt"
	"maps"
	"sync"
)

// Persistent is an object managed by an ObjectContext.
type Persistent interface {
	EntityName() string
	ObjectID() *ObjectID
	SetObjectID(id *ObjectID)
	PersistenceState() PersistenceState
	SetPersistenceState(state PersistenceState)
	ObjectContext() ObjectContext
	SetObjectContext(ctx ObjectContext)

	// ReadPropertyDirectly returns the stored value without faulting.
	ReadPropertyDirectly(name string) any

	// WritePropertyDirectly stores a value without notifying the context.
	WritePropertyDirectly(name string, value any)
}

// Fault stands in for an unresolved to-one relationship value.
type Fault interface {
	ResolveFault(ctx context.Context, owner Persistent, relationship string) (any, error)
}

// ValueHolder is a lazily resolved relationship value.
type ValueHolder interface {
	IsFault() bool
	Invalidate()
}

// ToManyHolder is the to-many value contract of the context layer.
type ToManyHolder interface {
	ValueHolder

	// Objects returns the members, resolving the holder first.
	Objects(ctx context.Context) ([]Persistent, error)

	// SetObjects replaces the members and marks the holder resolved
	// without events.
	SetObjects(objects []Persistent)

	// AddDirectly and RemoveDirectly change membership without events or
	// reverse relationship updates.
	AddDirectly(o Persistent)
	RemoveDirectly(o Persistent)
}

// DataObject is a generic Persistent storing its properties in a map.
type DataObject struct {
	entity string

	mu      sync.RWMutex
	id      *ObjectID
	state   PersistenceState
	context ObjectContext
	values  map[string]any
}

// NewDataObject returns a TRANSIENT object of the named entity.
func NewDataObject(entity string) *DataObject {
	return &DataObject{entity: entity, values: make(map[string]any)}
}

func (o *DataObject) EntityName() string { return o.entity }

func (o *DataObject) ObjectID() *ObjectID {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.id
}

func (o *DataObject) SetObjectID(id *ObjectID) {
	o.mu.Lock()
	o.id = id
	o.mu.Unlock()
}

func (o *DataObject) PersistenceState() PersistenceState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

func (o *DataObject) SetPersistenceState(state PersistenceState) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()
}

func (o *DataObject) ObjectContext() ObjectContext {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.context
}

func (o *DataObject) SetObjectContext(ctx ObjectContext) {
	o.mu.Lock()
	o.context = ctx
	o.mu.Unlock()
}

func (o *DataObject) ReadPropertyDirectly(name string) any {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.values[name]
}

func (o *DataObject) WritePropertyDirectly(name string, value any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if value == nil {
		delete(o.values, name)
		return
	}
	o.values[name] = value
}

// Values returns a copy of the stored properties.
func (o *DataObject) Values() map[string]any {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return maps.Clone(o.values)
}

// ReadProperty returns a property value, loading a HOLLOW object and
// resolving a to-one fault first.
func (o *DataObject) ReadProperty(ctx context.Context, name string) (any, error) {
	oc := o.ObjectContext()
	if oc == nil {
		return o.ReadPropertyDirectly(name), nil
	}
	if err := oc.PrepareForAccess(ctx, o, name, false); err != nil {
		return nil, err
	}
	d := oc.ClassDescriptor(o.entity)
	if d == nil {
		return o.ReadPropertyDirectly(name), nil
	}
	p := d.Property(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownProperty, o.entity, name)
	}
	return p.Read(ctx, o)
}

// WriteProperty stores a property value and notifies the context.
func (o *DataObject) WriteProperty(ctx context.Context, name string, value any) error {
	oc := o.ObjectContext()
	if oc == nil {
		o.WritePropertyDirectly(name, value)
		return nil
	}
	if err := oc.PrepareForAccess(ctx, o, name, false); err != nil {
		return err
	}
	old := o.ReadPropertyDirectly(name)
	o.WritePropertyDirectly(name, value)
	oc.PropertyChanged(o, name, old, value)
	return nil
}

func (o *DataObject) String() string {
	return fmt.Sprintf("{%s %s %s}", o.entity, o.ObjectID(), o.PersistenceState())
}
