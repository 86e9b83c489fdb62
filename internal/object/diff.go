package object

// GraphChangeHandler receives the operations of a GraphDiff.
type GraphChangeHandler interface {
	NodeIDChanged(nodeID, newID *ObjectID)
	NodeCreated(nodeID *ObjectID)
	NodeRemoved(nodeID *ObjectID)
	NodePropertyChanged(nodeID *ObjectID, property string, oldValue, newValue any)
	ArcCreated(nodeID, targetNodeID *ObjectID, arc string)
	ArcDeleted(nodeID, targetNodeID *ObjectID, arc string)
}

// GraphDiff is a reversible change to an object graph.
type GraphDiff interface {
	Apply(h GraphChangeHandler)
	Undo(h GraphChangeHandler)
	IsNoop() bool
}

type NodeCreateDiff struct{ ID *ObjectID }

func (d NodeCreateDiff) Apply(h GraphChangeHandler) { h.NodeCreated(d.ID) }
func (d NodeCreateDiff) Undo(h GraphChangeHandler)  { h.NodeRemoved(d.ID) }
func (d NodeCreateDiff) IsNoop() bool               { return false }

type NodeDeleteDiff struct{ ID *ObjectID }

func (d NodeDeleteDiff) Apply(h GraphChangeHandler) { h.NodeRemoved(d.ID) }
func (d NodeDeleteDiff) Undo(h GraphChangeHandler)  { h.NodeCreated(d.ID) }
func (d NodeDeleteDiff) IsNoop() bool               { return false }

type NodeIDChangeDiff struct{ ID, NewID *ObjectID }

func (d NodeIDChangeDiff) Apply(h GraphChangeHandler) { h.NodeIDChanged(d.ID, d.NewID) }
func (d NodeIDChangeDiff) Undo(h GraphChangeHandler)  { h.NodeIDChanged(d.NewID, d.ID) }
func (d NodeIDChangeDiff) IsNoop() bool               { return d.ID.Equal(d.NewID) }

type NodePropertyChangeDiff struct {
	ID       *ObjectID
	Property string
	OldValue any
	NewValue any
}

func (d NodePropertyChangeDiff) Apply(h GraphChangeHandler) {
	h.NodePropertyChanged(d.ID, d.Property, d.OldValue, d.NewValue)
}

func (d NodePropertyChangeDiff) Undo(h GraphChangeHandler) {
	h.NodePropertyChanged(d.ID, d.Property, d.NewValue, d.OldValue)
}

func (d NodePropertyChangeDiff) IsNoop() bool { return false }

type ArcCreateDiff struct {
	ID, TargetID *ObjectID
	Arc          string
}

func (d ArcCreateDiff) Apply(h GraphChangeHandler) { h.ArcCreated(d.ID, d.TargetID, d.Arc) }
func (d ArcCreateDiff) Undo(h GraphChangeHandler)  { h.ArcDeleted(d.ID, d.TargetID, d.Arc) }
func (d ArcCreateDiff) IsNoop() bool               { return false }

type ArcDeleteDiff struct {
	ID, TargetID *ObjectID
	Arc          string
}

func (d ArcDeleteDiff) Apply(h GraphChangeHandler) { h.ArcDeleted(d.ID, d.TargetID, d.Arc) }
func (d ArcDeleteDiff) Undo(h GraphChangeHandler)  { h.ArcCreated(d.ID, d.TargetID, d.Arc) }
func (d ArcDeleteDiff) IsNoop() bool               { return false }

// CompoundDiff applies its parts in order and undoes them in reverse.
type CompoundDiff struct {
	diffs []GraphDiff
}

// Add appends d unless it is nil.
func (c *CompoundDiff) Add(d GraphDiff) {
	if d != nil {
		c.diffs = append(c.diffs, d)
	}
}

// Diffs returns the parts in order.
func (c *CompoundDiff) Diffs() []GraphDiff { return c.diffs }

func (c *CompoundDiff) Apply(h GraphChangeHandler) {
	for _, d := range c.diffs {
		d.Apply(h)
	}
}

func (c *CompoundDiff) Undo(h GraphChangeHandler) {
	for i := len(c.diffs) - 1; i >= 0; i-- {
		c.diffs[i].Undo(h)
	}
}

func (c *CompoundDiff) IsNoop() bool {
	for _, d := range c.diffs {
		if !d.IsNoop() {
			return false
		}
	}
	return true
}
