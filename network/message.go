package network

// Message is a payload whose only structural requirement is a declared
// byte size and an Action hook invoked on delivery to each destination. The
// same Message instance is shared by every destination of one logical Send;
// protocol code must not mutate per-destination state from inside Action
// without keying it by the to Node.
type Message interface {
	// Size returns the wire size in bytes, used for the sender's and
	// receiver's byte counters and for protocol-level bandwidth accounting.
	Size() int
	// Action runs on delivery at the receiving node. Implementations panic
	// on unrecoverable protocol errors; the Engine does not recover from
	// them -- a broken message action aborts the whole run, matching the
	// "exceptions abort the simulation" failure semantics of the task
	// scheduler.
	Action(net *Network, from, to *Node)
}
