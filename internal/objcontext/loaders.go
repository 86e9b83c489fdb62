package objcontext

import (
	"context"

	"github.com/roach88/objgraph/internal/object"
)

// noopHandler ignores every operation; loaders embed it and override what
// they handle.
type noopHandler struct{}

func (noopHandler) NodeIDChanged(_, _ *object.ObjectID)                    {}
func (noopHandler) NodeCreated(*object.ObjectID)                           {}
func (noopHandler) NodeRemoved(*object.ObjectID)                           {}
func (noopHandler) NodePropertyChanged(*object.ObjectID, string, any, any) {}
func (noopHandler) ArcCreated(_, _ *object.ObjectID, _ string)             {}
func (noopHandler) ArcDeleted(_, _ *object.ObjectID, _ string)             {}

// replyLoader applies the id replacements a channel returns from a commit.
type replyLoader struct {
	noopHandler
	c *Context
}

func (l *replyLoader) NodeIDChanged(id, newID *object.ObjectID) {
	o := l.c.graph.UnregisterNode(id)
	if o == nil {
		return
	}
	o.SetObjectID(newID)
	l.c.graph.RegisterNode(newID, o)
}

// childLoader applies the changes of a child context to its parent. The
// child recorded both sides of every relationship change, so reverse
// relationships are not set again.
type childLoader struct {
	ctx context.Context
	c   *Context
	err error
}

func (l *childLoader) NodeIDChanged(id, newID *object.ObjectID) {
	(&replyLoader{c: l.c}).NodeIDChanged(id, newID)
}

func (l *childLoader) NodeCreated(id *object.ObjectID) {
	if l.err != nil || l.c.graph.Node(id) != nil {
		return
	}
	d := l.c.ClassDescriptor(id.EntityName())
	if d == nil {
		return
	}
	o := d.NewObject()
	o.SetObjectID(id)
	l.err = l.c.RegisterNewObject(o)
}

func (l *childLoader) NodeRemoved(id *object.ObjectID) {
	if l.err != nil {
		return
	}
	if o := l.c.graph.Node(id); o != nil {
		l.err = l.c.DeleteObject(o)
	}
}

func (l *childLoader) NodePropertyChanged(id *object.ObjectID, property string, _, newValue any) {
	if l.err != nil {
		return
	}
	o, err := l.c.localNode(id)
	if err != nil {
		l.err = err
		return
	}
	if err := l.c.PrepareForAccess(l.ctx, o, property, false); err != nil {
		l.err = err
		return
	}
	old := o.ReadPropertyDirectly(property)
	o.WritePropertyDirectly(property, newValue)
	l.c.PropertyChanged(o, property, old, newValue)
}

func (l *childLoader) ArcCreated(id, targetID *object.ObjectID, arc string) {
	if l.err != nil {
		return
	}
	source, target, p, err := l.arc(id, targetID, arc)
	if err != nil || p == nil {
		l.err = err
		return
	}
	if p.Kind() == object.ToOneProperty {
		l.err = object.SetToOneTarget(l.ctx, source, arc, target, false)
		return
	}
	l.err = object.AddToManyTarget(l.ctx, source, arc, target, false)
}

func (l *childLoader) ArcDeleted(id, targetID *object.ObjectID, arc string) {
	if l.err != nil {
		return
	}
	source, target, p, err := l.arc(id, targetID, arc)
	if err != nil || p == nil {
		l.err = err
		return
	}
	if p.Kind() == object.ToOneProperty {
		if current, ok := p.ReadDirectly(source).(object.Persistent); ok && current == target {
			l.err = object.SetToOneTarget(l.ctx, source, arc, nil, false)
		}
		return
	}
	l.err = object.RemoveToManyTarget(l.ctx, source, arc, target, false)
}

func (l *childLoader) arc(id, targetID *object.ObjectID, arc string) (object.Persistent, object.Persistent, *object.Property, error) {
	source, err := l.c.localNode(id)
	if err != nil {
		return nil, nil, nil, err
	}
	target, err := l.c.localNode(targetID)
	if err != nil {
		return nil, nil, nil, err
	}
	d := l.c.ClassDescriptor(id.EntityName())
	if d == nil {
		return nil, nil, nil, nil
	}
	return source, target, d.Property(arc), nil
}

// rollbackLoader undoes recorded changes by writing values back directly,
// without recording new changes.
type rollbackLoader struct {
	noopHandler
	ctx context.Context
	c   *Context
}

func (l *rollbackLoader) NodePropertyChanged(id *object.ObjectID, property string, _, newValue any) {
	if o := l.c.graph.Node(id); o != nil {
		o.WritePropertyDirectly(property, newValue)
	}
}

func (l *rollbackLoader) ArcCreated(id, targetID *object.ObjectID, arc string) {
	source, target, p := l.arc(id, targetID, arc)
	if p == nil || target == nil {
		return
	}
	if p.Kind() == object.ToOneProperty {
		p.WriteDirectly(source, target)
		return
	}
	if h := p.ToManyHolder(source); h != nil {
		h.AddDirectly(target)
	}
}

func (l *rollbackLoader) ArcDeleted(id, targetID *object.ObjectID, arc string) {
	source, target, p := l.arc(id, targetID, arc)
	if p == nil {
		return
	}
	if p.Kind() == object.ToOneProperty {
		if current, ok := p.ReadDirectly(source).(object.Persistent); ok && current == target {
			p.WriteDirectly(source, nil)
		}
		return
	}
	if h := p.ToManyHolder(source); h != nil && target != nil {
		h.RemoveDirectly(target)
	}
}

func (l *rollbackLoader) arc(id, targetID *object.ObjectID, arc string) (object.Persistent, object.Persistent, *object.Property) {
	source := l.c.graph.Node(id)
	if source == nil {
		return nil, nil, nil
	}
	d := l.c.ClassDescriptor(id.EntityName())
	if d == nil {
		return nil, nil, nil
	}
	return source, l.c.graph.Node(targetID), d.Property(arc)
}
