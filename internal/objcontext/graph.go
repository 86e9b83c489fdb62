package objcontext

import (
	"sync"

	"github.com/roach88/objgraph/internal/object"
)

// graphManager is the identity map of a Context, keyed by ObjectID.Key.
type graphManager struct {
	mu    sync.RWMutex
	nodes map[string]object.Persistent
	order []string
}

var _ object.GraphManager = (*graphManager)(nil)

func newGraphManager() *graphManager {
	return &graphManager{nodes: make(map[string]object.Persistent)}
}

func (g *graphManager) Node(id *object.ObjectID) object.Persistent {
	if id == nil {
		return nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[id.Key()]
}

func (g *graphManager) RegisterNode(id *object.ObjectID, o object.Persistent) {
	key := id.Key()
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[key]; !ok {
		g.order = append(g.order, key)
	}
	g.nodes[key] = o
}

func (g *graphManager) UnregisterNode(id *object.ObjectID) object.Persistent {
	key := id.Key()
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.nodes[key]
	if !ok {
		return nil
	}
	delete(g.nodes, key)
	for i, k := range g.order {
		if k == key {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return o
}

// Nodes returns the registered objects in registration order.
func (g *graphManager) Nodes() []object.Persistent {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]object.Persistent, 0, len(g.order))
	for _, k := range g.order {
		out = append(out, g.nodes[k])
	}
	return out
}

func (g *graphManager) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// changeLog records the diffs of uncommitted changes in order.
type changeLog struct {
	mu    sync.Mutex
	diffs []object.GraphDiff
}

func (l *changeLog) add(d object.GraphDiff) {
	l.mu.Lock()
	l.diffs = append(l.diffs, d)
	l.mu.Unlock()
}

// snapshot returns the recorded changes as one diff.
func (l *changeLog) snapshot() *object.CompoundDiff {
	l.mu.Lock()
	defer l.mu.Unlock()
	diff := &object.CompoundDiff{}
	for _, d := range l.diffs {
		diff.Add(d)
	}
	return diff
}

func (l *changeLog) clear() {
	l.mu.Lock()
	l.diffs = nil
	l.mu.Unlock()
}

func (l *changeLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.diffs)
}
