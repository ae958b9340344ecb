package handel

import (
	"math/rand"

	"github.com/aggsim/aggsim/internal/bitset"
)

// Attestation is the statement a node votes for at a given height, plus
// the set of signers (Who) whose contributions have been merged into it.
// Two Attestations at the same height can carry different Hash values --
// that is how onNewAgg's hash-keyed incoming map ends up with more than
// one entry, modeling honest nodes disagreeing on which fork to attest to.
type Attestation struct {
	Height int
	Hash   int
	Who    *bitset.Set
}

func newAttestation(height, hash, nodeID, nodeCount int) *Attestation {
	who := bitset.New(nodeCount)
	who.Set(nodeID, true)
	return &Attestation{Height: height, Hash: hash, Who: who}
}

// mergeAttestations unions the signer sets of two same-height, same-hash
// Attestations into a new one; callers only merge entries already keyed
// together by hash.
func mergeAttestations(a, b *Attestation) *Attestation {
	return &Attestation{Height: a.Height, Hash: a.Hash, Who: bitset.Union(a.Who, b.Who)}
}

// RandomAttestationHash draws the fork-length a node disagrees by: a
// geometric distribution that is almost always 0 and rarely higher,
// simulating honest nodes momentarily voting for different forks at the
// same height -- onNewAgg's hash-keyed incoming map has nothing to merge
// without some notion of attestation content.
func RandomAttestationHash(rng *rand.Rand) int {
	h := 0
	for rng.Float64() < 0.2 {
		h++
	}
	return h
}
