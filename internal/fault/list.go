package fault

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/objgraph/internal/object"
)

// State is the resolution state of a PersistentObjectList.
type State int

const (
	StateFault State = iota
	StateResolving
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateFault:
		return "FAULT"
	case StateResolving:
		return "RESOLVING"
	case StateResolved:
		return "RESOLVED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// PersistentObjectList is the members of one to-many relationship of one
// owner. Operations that need the members resolve the list first; Add and
// Remove on an unresolved list are recorded without a fetch.
//
// Every mutation notifies the owner's context and updates the reverse
// relationship of the added or removed object.
type PersistentObjectList struct {
	owner        object.Persistent
	relationship string

	// resolveMu serializes fetches.
	resolveMu sync.Mutex

	mu      sync.Mutex
	state   State
	objects []object.Persistent
	added   []object.Persistent
	removed []object.Persistent
}

var _ object.ToManyHolder = (*PersistentObjectList)(nil)

// NewPersistentObjectList returns an unresolved list.
func NewPersistentObjectList(owner object.Persistent, relationship string) *PersistentObjectList {
	return &PersistentObjectList{owner: owner, relationship: relationship}
}

// ToManyFactory creates the holder of an unresolved to-many relationship.
// It matches object.DescriptorRegistry.ToManyFactory.
func ToManyFactory(owner object.Persistent, relationship string) object.ToManyHolder {
	return NewPersistentObjectList(owner, relationship)
}

func (l *PersistentObjectList) Owner() object.Persistent { return l.owner }
func (l *PersistentObjectList) Relationship() string     { return l.relationship }

func (l *PersistentObjectList) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// IsFault reports whether the members still have to be fetched.
func (l *PersistentObjectList) IsFault() bool {
	return l.State() != StateResolved
}

// Invalidate turns the list back into a fault. Pending changes are kept.
func (l *PersistentObjectList) Invalidate() {
	l.mu.Lock()
	l.state = StateFault
	l.objects = nil
	l.mu.Unlock()
}

// SetObjects replaces the members and marks the list resolved. Pending
// changes are dropped.
func (l *PersistentObjectList) SetObjects(objects []object.Persistent) {
	l.mu.Lock()
	l.objects = slices.Clone(objects)
	l.state = StateResolved
	l.added, l.removed = nil, nil
	l.mu.Unlock()
}

func (l *PersistentObjectList) AddDirectly(o object.Persistent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateResolved {
		l.addLocal(o)
		return
	}
	if !slices.Contains(l.objects, o) {
		l.objects = append(l.objects, o)
	}
}

func (l *PersistentObjectList) RemoveDirectly(o object.Persistent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateResolved {
		l.removeLocal(o)
		return
	}
	l.objects = slices.DeleteFunc(l.objects, func(x object.Persistent) bool { return x == o })
}

// PendingAdded returns the objects added while the list was a fault.
func (l *PersistentObjectList) PendingAdded() []object.Persistent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.added)
}

// PendingRemoved returns the objects removed while the list was a fault.
func (l *PersistentObjectList) PendingRemoved() []object.Persistent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.removed)
}

// addLocal and removeLocal cancel each other: an object added and then
// removed before resolution is in neither list. Callers hold mu.
func (l *PersistentObjectList) addLocal(o object.Persistent) {
	if i := slices.Index(l.removed, o); i >= 0 {
		l.removed = slices.Delete(l.removed, i, i+1)
		return
	}
	if !slices.Contains(l.added, o) {
		l.added = append(l.added, o)
	}
}

func (l *PersistentObjectList) removeLocal(o object.Persistent) {
	if i := slices.Index(l.added, o); i >= 0 {
		l.added = slices.Delete(l.added, i, i+1)
		return
	}
	if !slices.Contains(l.removed, o) {
		l.removed = append(l.removed, o)
	}
}

// Objects returns a copy of the members.
func (l *PersistentObjectList) Objects(ctx context.Context) ([]object.Persistent, error) {
	if err := l.resolve(ctx); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.objects), nil
}

func (l *PersistentObjectList) Len(ctx context.Context) (int, error) {
	if err := l.resolve(ctx); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.objects), nil
}

func (l *PersistentObjectList) Get(ctx context.Context, i int) (object.Persistent, error) {
	if err := l.resolve(ctx); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= len(l.objects) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(l.objects))
	}
	return l.objects[i], nil
}

func (l *PersistentObjectList) IndexOf(ctx context.Context, o object.Persistent) (int, error) {
	if err := l.resolve(ctx); err != nil {
		return -1, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Index(l.objects, o), nil
}

func (l *PersistentObjectList) Contains(ctx context.Context, o object.Persistent) (bool, error) {
	i, err := l.IndexOf(ctx, o)
	return i >= 0, err
}

// Add appends o. On a fault the add is recorded and nothing is fetched.
func (l *PersistentObjectList) Add(ctx context.Context, o object.Persistent) error {
	l.mu.Lock()
	if l.state == StateResolved {
		l.objects = append(l.objects, o)
	} else {
		l.addLocal(o)
	}
	l.mu.Unlock()
	return l.postprocessAdd(ctx, o)
}

// Insert puts o at position i, shifting later members.
func (l *PersistentObjectList) Insert(ctx context.Context, i int, o object.Persistent) error {
	if err := l.resolve(ctx); err != nil {
		return err
	}
	l.mu.Lock()
	if i < 0 || i > len(l.objects) {
		n := len(l.objects)
		l.mu.Unlock()
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, n)
	}
	l.objects = slices.Insert(l.objects, i, o)
	l.mu.Unlock()
	return l.postprocessAdd(ctx, o)
}

func (l *PersistentObjectList) AddAll(ctx context.Context, objects []object.Persistent) error {
	if err := l.resolve(ctx); err != nil {
		return err
	}
	l.mu.Lock()
	l.objects = append(l.objects, objects...)
	l.mu.Unlock()
	for _, o := range objects {
		if err := l.postprocessAdd(ctx, o); err != nil {
			return err
		}
	}
	return nil
}

// Remove removes the first occurrence of o and reports whether the list
// changed. On a fault the removal is recorded and reported as a change.
func (l *PersistentObjectList) Remove(ctx context.Context, o object.Persistent) (bool, error) {
	l.mu.Lock()
	if l.state == StateResolved {
		i := slices.Index(l.objects, o)
		if i < 0 {
			l.mu.Unlock()
			return false, nil
		}
		l.objects = slices.Delete(l.objects, i, i+1)
	} else {
		l.removeLocal(o)
	}
	l.mu.Unlock()
	return true, l.postprocessRemove(ctx, o)
}

func (l *PersistentObjectList) RemoveAt(ctx context.Context, i int) (object.Persistent, error) {
	if err := l.resolve(ctx); err != nil {
		return nil, err
	}
	l.mu.Lock()
	if i < 0 || i >= len(l.objects) {
		n := len(l.objects)
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, n)
	}
	o := l.objects[i]
	l.objects = slices.Delete(l.objects, i, i+1)
	l.mu.Unlock()
	return o, l.postprocessRemove(ctx, o)
}

// RemoveAll removes every occurrence of every given object.
func (l *PersistentObjectList) RemoveAll(ctx context.Context, objects []object.Persistent) (bool, error) {
	if err := l.resolve(ctx); err != nil {
		return false, err
	}
	var removed []object.Persistent
	l.mu.Lock()
	l.objects = slices.DeleteFunc(l.objects, func(x object.Persistent) bool {
		if slices.Contains(objects, x) {
			removed = append(removed, x)
			return true
		}
		return false
	})
	l.mu.Unlock()
	for _, o := range removed {
		if err := l.postprocessRemove(ctx, o); err != nil {
			return true, err
		}
	}
	return len(removed) > 0, nil
}

// Set replaces the member at position i and returns the old one.
func (l *PersistentObjectList) Set(ctx context.Context, i int, o object.Persistent) (object.Persistent, error) {
	if err := l.resolve(ctx); err != nil {
		return nil, err
	}
	l.mu.Lock()
	if i < 0 || i >= len(l.objects) {
		n := len(l.objects)
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, n)
	}
	old := l.objects[i]
	l.objects[i] = o
	l.mu.Unlock()
	if old == o {
		return old, nil
	}
	if err := l.postprocessRemove(ctx, old); err != nil {
		return old, err
	}
	return old, l.postprocessAdd(ctx, o)
}

func (l *PersistentObjectList) Clear(ctx context.Context) error {
	if err := l.resolve(ctx); err != nil {
		return err
	}
	l.mu.Lock()
	removed := l.objects
	l.objects = nil
	l.mu.Unlock()
	for _, o := range removed {
		if err := l.postprocessRemove(ctx, o); err != nil {
			return err
		}
	}
	return nil
}

// resolve fetches the members once. Concurrent callers wait for the
// running fetch and share its result; a failed fetch leaves the list a
// fault.
func (l *PersistentObjectList) resolve(ctx context.Context) error {
	if !l.IsFault() {
		return nil
	}

	l.resolveMu.Lock()
	defer l.resolveMu.Unlock()

	l.mu.Lock()
	if l.state == StateResolved {
		l.mu.Unlock()
		return nil
	}
	l.state = StateResolving
	l.mu.Unlock()

	fetched, err := l.fetch(ctx)
	sampleResolve("to-many", err)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.state = StateFault
		return fmt.Errorf("resolve %s.%s: %w", l.owner.EntityName(), l.relationship, err)
	}

	switch state := l.owner.PersistenceState(); {
	case state.IsUncommitted(), state == object.New:
		fetched = mergeLocal(fetched, l.added, l.removed)
	}
	l.added, l.removed = nil, nil
	l.updateReverse(fetched)
	l.objects = fetched
	l.state = StateResolved

	slog.Debug("resolved to-many fault",
		"owner", l.owner.ObjectID(),
		"relationship", l.relationship,
		"size", len(fetched),
	)
	return nil
}

func (l *PersistentObjectList) fetch(ctx context.Context) ([]object.Persistent, error) {
	// nothing to fetch for an object without a row
	if l.owner.PersistenceState().IsTransient() {
		return nil, nil
	}
	oc := l.owner.ObjectContext()
	if oc == nil {
		return nil, fmt.Errorf("%w: %s", object.ErrNotRegistered, l.owner.ObjectID())
	}
	results, err := oc.PerformQuery(ctx, faultQuery(l.owner, l.relationship))
	if err != nil {
		return nil, err
	}
	objects := make([]object.Persistent, 0, len(results))
	for _, r := range results {
		o, ok := r.(object.Persistent)
		if !ok {
			return nil, fmt.Errorf("relationship query returned %T, want a persistent object", r)
		}
		objects = append(objects, o)
	}
	return objects, nil
}

func mergeLocal(fetched, added, removed []object.Persistent) []object.Persistent {
	for _, o := range added {
		if !slices.Contains(fetched, o) {
			fetched = append(fetched, o)
		}
	}
	if len(removed) > 0 {
		fetched = slices.DeleteFunc(fetched, func(o object.Persistent) bool {
			return slices.Contains(removed, o)
		})
	}
	return fetched
}

func (l *PersistentObjectList) property() *object.Property {
	oc := l.owner.ObjectContext()
	if oc == nil {
		return nil
	}
	d := oc.ClassDescriptor(l.owner.EntityName())
	if d == nil {
		return nil
	}
	return d.Property(l.relationship)
}

// updateReverse points the reverse to-one of every fetched member at the
// owner without events. Callers hold mu.
func (l *PersistentObjectList) updateReverse(members []object.Persistent) {
	p := l.property()
	if p == nil {
		return
	}
	rev := p.ReverseProperty()
	if rev == nil || rev.Kind() != object.ToOneProperty {
		return
	}
	for _, o := range members {
		rev.WriteDirectly(o, l.owner)
	}
}

func (l *PersistentObjectList) postprocessAdd(ctx context.Context, o object.Persistent) error {
	oc := l.owner.ObjectContext()
	if oc == nil {
		return nil
	}
	oc.PropertyChanged(l.owner, l.relationship, nil, o)
	return l.setReverse(ctx, o, true)
}

func (l *PersistentObjectList) postprocessRemove(ctx context.Context, o object.Persistent) error {
	oc := l.owner.ObjectContext()
	if oc == nil {
		return nil
	}
	oc.PropertyChanged(l.owner, l.relationship, o, nil)
	return l.setReverse(ctx, o, false)
}

// setReverse links or unlinks the owner on the reverse relationship of o.
// Members without a context are updated directly.
func (l *PersistentObjectList) setReverse(ctx context.Context, o object.Persistent, link bool) error {
	p := l.property()
	if p == nil || o == nil {
		return nil
	}
	rev := p.ReverseProperty()
	if rev == nil {
		return nil
	}

	if o.ObjectContext() == nil {
		switch {
		case rev.Kind() == object.ToOneProperty && link:
			rev.WriteDirectly(o, l.owner)
		case rev.Kind() == object.ToOneProperty:
			rev.WriteDirectly(o, nil)
		case link:
			if h := rev.ToManyHolder(o); h != nil {
				h.AddDirectly(l.owner)
			}
		default:
			if h := rev.ToManyHolder(o); h != nil {
				h.RemoveDirectly(l.owner)
			}
		}
		return nil
	}

	var err error
	switch {
	case rev.Kind() == object.ToOneProperty && link:
		err = object.SetToOneTarget(ctx, o, rev.Name(), l.owner, false)
	case rev.Kind() == object.ToOneProperty:
		err = object.SetToOneTarget(ctx, o, rev.Name(), nil, false)
	case link:
		err = object.AddToManyTarget(ctx, o, rev.Name(), l.owner, false)
	default:
		err = object.RemoveToManyTarget(ctx, o, rev.Name(), l.owner, false)
	}
	if err != nil {
		return fmt.Errorf("reverse of %s.%s: %w", l.owner.EntityName(), l.relationship, err)
	}
	return nil
}
