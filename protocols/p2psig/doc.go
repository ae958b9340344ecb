// Package p2psig implements a peer-to-peer BLS signature aggregation
// protocol combining plain gossip with an optional San Fermin overlay.
//
// A node sends its aggregated-signature state to its direct peers whenever
// that state changes, periodically offers peers the signatures they are
// missing, and runs a background task to "verify" (simulate the pairing
// cost of) signature sets it has received before merging them in.
//
// # Reading Guide
//
//   - params.go: Parameters and the SendSigsStrategy enum
//   - messages.go: the two wire messages, State and SendSigs
//   - compress.go: the compressedSize/mergeRanges wire-size estimator
//   - node.go: per-node protocol state and behavior
//   - protocol.go: wiring nodes onto a network.Network
package p2psig
