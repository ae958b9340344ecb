// Package network provides the discrete-event simulation kernel shared by
// the aggregation protocols: a Node table, a pluggable-latency Send path,
// and an Engine that drains envelopes and tasks in simulated-time order.
//
// # Reading Guide
//
// Start with these files to understand the kernel:
//   - envelope.go: the two-case Envelope carrier (single- vs multi-destination)
//   - engine.go: the bucketed event store and the drain loop
//   - network.go: the Node table, peer topology, and Send/Run surface
//   - task.go: one-shot and conditional task scheduling
//
// # Architecture
//
// network owns the Message and Envelope types and the Engine that drives
// them; it depends on the sibling latency and nodebuilder packages for the
// pluggable LatencyModel and NodeBuilder interfaces, but never the reverse,
// so neither package needs an init()-registration trick to avoid an import
// cycle. Protocol packages (protocols/p2psig, protocols/handel) build on
// network's exported Node/Message/Network surface without reaching into
// its unexported Envelope internals.
package network
