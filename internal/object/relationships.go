package object

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotRegistered is returned for relationship changes on objects that
// have no context.
var ErrNotRegistered = errors.New("object is not registered with a context")

func relationshipProperty(o Persistent, name string, kind PropertyKind) (ObjectContext, *Property, error) {
	oc := o.ObjectContext()
	if oc == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotRegistered, o.ObjectID())
	}
	d := oc.ClassDescriptor(o.EntityName())
	if d == nil {
		return nil, nil, fmt.Errorf("%w: no descriptor for %s", ErrUnknownProperty, o.EntityName())
	}
	p := d.Property(name)
	if p == nil || p.kind != kind {
		return nil, nil, fmt.Errorf("%w: %s.%s is not a %s relationship", ErrUnknownProperty, o.EntityName(), name, kind)
	}
	return oc, p, nil
}

// SetToOneTarget points a to-one relationship of source at target (nil
// clears it) and notifies the context. With setReverse the reverse
// relationship of the old and new targets is updated too.
func SetToOneTarget(ctx context.Context, source Persistent, relationship string, target Persistent, setReverse bool) error {
	oc, p, err := relationshipProperty(source, relationship, ToOneProperty)
	if err != nil {
		return err
	}
	if err := oc.PrepareForAccess(ctx, source, relationship, false); err != nil {
		return err
	}

	var old any
	if setReverse {
		if old, err = p.Read(ctx, source); err != nil {
			return err
		}
	} else {
		old = p.ReadDirectly(source)
		if _, isFault := old.(Fault); isFault {
			old = nil
		}
	}
	oldTarget, _ := old.(Persistent)
	if oldTarget == target {
		return nil
	}

	if setReverse {
		if oldTarget != nil {
			if err := unsetReverse(ctx, p, source, oldTarget); err != nil {
				return err
			}
		}
		if target != nil {
			if err := setReverseTo(ctx, p, source, target); err != nil {
				return err
			}
		}
	}

	var newValue any
	if target != nil {
		newValue = target
	}
	oc.PropertyChanged(source, relationship, old, newValue)
	p.WriteDirectly(source, newValue)
	return nil
}

// AddToManyTarget adds target to a to-many relationship of source without
// resolving it.
func AddToManyTarget(ctx context.Context, source Persistent, relationship string, target Persistent, setReverse bool) error {
	oc, p, err := relationshipProperty(source, relationship, ToManyProperty)
	if err != nil {
		return err
	}
	if err := oc.PrepareForAccess(ctx, source, relationship, false); err != nil {
		return err
	}
	holder := p.ToManyHolder(source)
	if holder == nil {
		return fmt.Errorf("no to-many holder for %s.%s", source.EntityName(), relationship)
	}
	holder.AddDirectly(target)
	oc.PropertyChanged(source, relationship, nil, target)
	if setReverse {
		return setReverseTo(ctx, p, source, target)
	}
	return nil
}

// RemoveToManyTarget removes target from a to-many relationship of source
// without resolving it.
func RemoveToManyTarget(ctx context.Context, source Persistent, relationship string, target Persistent, setReverse bool) error {
	oc, p, err := relationshipProperty(source, relationship, ToManyProperty)
	if err != nil {
		return err
	}
	if err := oc.PrepareForAccess(ctx, source, relationship, false); err != nil {
		return err
	}
	holder := p.ToManyHolder(source)
	if holder == nil {
		return fmt.Errorf("no to-many holder for %s.%s", source.EntityName(), relationship)
	}
	holder.RemoveDirectly(target)
	oc.PropertyChanged(source, relationship, target, nil)
	if setReverse {
		return unsetReverse(ctx, p, source, target)
	}
	return nil
}

func setReverseTo(ctx context.Context, p *Property, source, target Persistent) error {
	rev := p.ReverseProperty()
	if rev == nil {
		return nil
	}
	if rev.kind == ToOneProperty {
		return SetToOneTarget(ctx, target, rev.name, source, false)
	}
	return AddToManyTarget(ctx, target, rev.name, source, false)
}

func unsetReverse(ctx context.Context, p *Property, source, target Persistent) error {
	rev := p.ReverseProperty()
	if rev == nil {
		return nil
	}
	if rev.kind == ToOneProperty {
		return SetToOneTarget(ctx, target, rev.name, nil, false)
	}
	return RemoveToManyTarget(ctx, target, rev.name, source, false)
}
