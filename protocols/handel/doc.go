// Package handel implements level-based signature aggregation: nodes are
// organized into a binary-tree-shaped peer hierarchy keyed by their dense
// id, and aggregate contributions climb that hierarchy one level at a time
// instead of gossiping pairwise like p2psig does.
//
// # Reading Guide
//
//   - params.go: Parameters and the fixed PERIOD_TIME constant
//   - attestation.go: Attestation, the per-height signed statement, and its
//     geometric fork-length generator
//   - messages.go: SendAggregation, the on-the-wire contribution
//   - level.go: HLevel, the per-level state machine and its peer ranking
//   - aggregation.go: AggregationProcess, one per consensus height
//   - node.go: hNode, the per-node driver (dissemination, verify, onNewAgg)
//   - protocol.go: Protocol, the network.Network wiring and Init
package handel
