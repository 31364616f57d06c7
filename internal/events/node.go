package events

// Node is one component in the view tree. Events dispatched on a node are
// delivered to its own listeners first and then bubble to each ancestor.
type Node struct {
	name    string
	parent  *Node
	emitter Emitter
}

// NewNode creates a node named name under parent (nil for a root).
func NewNode(name string, parent *Node) *Node {
	return &Node{name: name, parent: parent}
}

// Name returns the node's name.
func (n *Node) Name() string { return n.name }

// Parent returns the node's parent, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Listen registers fn on this node.
func (n *Node) Listen(name Name, fn Listener) Subscription {
	return n.emitter.On(name, fn)
}

// Unlisten removes a listener registered with Listen.
func (n *Node) Unlisten(sub Subscription) {
	n.emitter.Off(sub)
}

// Dispatch creates an event targeted at this node and bubbles it to the root.
// It returns the event so callers can inspect whether propagation was stopped.
func (n *Node) Dispatch(name Name, detail any) *Event {
	ev := &Event{Name: name, Detail: detail, Target: n.name}
	for cur := n; cur != nil; cur = cur.parent {
		cur.emitter.Emit(ev)
		if ev.stopped {
			break
		}
	}
	return ev
}
