package objcontext

import (
	"context"
	"fmt"

	"github.com/roach88/objgraph/internal/fault"
	"github.com/roach88/objgraph/internal/object"
)

// Detach copies source into a new object that belongs to no context,
// following only the relationships named by prefetch. descriptor describes
// the copies; relationships outside the tree are left unset. An id reached
// twice yields the same copy, so shared objects stay shared and cycles end.
func Detach(ctx context.Context, source object.Persistent, descriptor *object.ClassDescriptor, prefetch *object.PrefetchTreeNode) (object.Persistent, error) {
	return detach(ctx, source, descriptor, prefetch, make(map[string]object.Persistent))
}

func detach(ctx context.Context, source object.Persistent, descriptor *object.ClassDescriptor, node *object.PrefetchTreeNode, seen map[string]object.Persistent) (object.Persistent, error) {
	id := source.ObjectID()
	if id == nil {
		return nil, fmt.Errorf("detach %s: %w", source.EntityName(), ErrTransientObject)
	}
	if target, ok := seen[id.Key()]; ok {
		return target, nil
	}

	// the id names the concrete entity, which may be a subentity
	if d := descriptor.Registry().Descriptor(id.EntityName()); d != nil {
		descriptor = d
	}
	target := descriptor.NewObject()
	target.SetObjectID(id)
	target.SetPersistenceState(object.Committed)
	seen[id.Key()] = target

	for _, p := range descriptor.Properties() {
		switch p.Kind() {
		case object.AttributeProperty:
			v, err := readSource(ctx, source, p.Name())
			if err != nil {
				return nil, err
			}
			p.WriteDirectly(target, v)

		case object.ToOneProperty:
			child := node.Child(p.Name())
			if child == nil {
				continue
			}
			v, err := readSource(ctx, source, p.Name())
			if err != nil {
				return nil, err
			}
			related, ok := v.(object.Persistent)
			if !ok || related == nil {
				p.WriteDirectly(target, nil)
				continue
			}
			copied, err := detach(ctx, related, p.TargetDescriptor(), child, seen)
			if err != nil {
				return nil, err
			}
			p.WriteDirectly(target, copied)

		case object.ToManyProperty:
			child := node.Child(p.Name())
			if child == nil {
				continue
			}
			members, err := readSourceList(ctx, source, p.Name())
			if err != nil {
				return nil, err
			}
			copies := make([]object.Persistent, 0, len(members))
			for _, m := range members {
				copied, err := detach(ctx, m, p.TargetDescriptor(), child, seen)
				if err != nil {
					return nil, err
				}
				copies = append(copies, copied)
			}
			list := fault.NewPersistentObjectList(target, p.Name())
			list.SetObjects(copies)
			p.WriteDirectly(target, list)

			// back references point at the copy, never the source
			if rev := p.ReverseProperty(); rev != nil && rev.Kind() == object.ToOneProperty {
				for _, c := range copies {
					rev.WriteDirectly(c, target)
				}
			}
		}
	}
	return target, nil
}

// readSource reads a property of a registered object through its context,
// resolving faults, and directly otherwise.
func readSource(ctx context.Context, o object.Persistent, name string) (any, error) {
	oc := o.ObjectContext()
	if oc == nil {
		return o.ReadPropertyDirectly(name), nil
	}
	if err := oc.PrepareForAccess(ctx, o, name, false); err != nil {
		return nil, err
	}
	d := oc.ClassDescriptor(o.EntityName())
	if d == nil || d.Property(name) == nil {
		return o.ReadPropertyDirectly(name), nil
	}
	return d.Property(name).Read(ctx, o)
}

func readSourceList(ctx context.Context, o object.Persistent, name string) ([]object.Persistent, error) {
	v, err := readSource(ctx, o, name)
	if err != nil {
		return nil, err
	}
	switch members := v.(type) {
	case nil:
		return nil, nil
	case object.ToManyHolder:
		return members.Objects(ctx)
	case []object.Persistent:
		return members, nil
	}
	return nil, fmt.Errorf("detach %s.%s: unexpected to-many value %T", o.EntityName(), name, v)
}
