package p2psig

import (
	"github.com/aggsim/aggsim/internal/bitset"
	"github.com/aggsim/aggsim/internal/moremath"
)

// safeGet treats any index beyond the bitset's capacity as unset, matching
// java.util.BitSet#get's behavior of never raising for a non-negative
// index. internal/bitset.Set instead panics out of range, so callers that
// scan past the highest set bit (as compressedSize does, by one position)
// must go through this helper.
func safeGet(s *bitset.Set, i int) bool {
	if i < 0 || i >= s.Cap() {
		return false
	}
	return s.Get(i)
}

// compressedSize estimates the number of aggregated signatures needed on
// the wire to represent sigs, under the window-compression scheme: sigs is
// scanned in windows of params.SigRange bits; a run of set bits that starts
// on a window boundary counts as one aggregated signature up to the end of
// that window (even when the run stops before the window is full), any
// other set bit counts as one, and consecutive fully-set windows aligned on
// SigRange*2^k boundaries collapse recursively via mergeRanges. A set whose
// cardinality equals SigningNodeCount counts as 1.
func (p *Protocol) compressedSize(sigs *bitset.Set) int {
	if sigs.Cardinality() == p.params.SigningNodeCount {
		return 1
	}

	firstOneAt := -1
	sigCt := 0
	pos := -1
	compressing := false
	wasCompressing := false

	for pos <= sigs.Length()+1 {
		pos++
		if !safeGet(sigs, pos) {
			compressing = false
			wasCompressing = false
			sigCt -= p.mergeRanges(firstOneAt, pos)
			firstOneAt = -1
		} else if compressing {
			if (pos+1)%p.params.SigRange == 0 {
				compressing = false
				wasCompressing = true
			}
		} else {
			sigCt++
			if pos%p.params.SigRange == 0 {
				compressing = true
				if !wasCompressing {
					firstOneAt = pos
				} else {
					wasCompressing = false
				}
			}
		}
	}

	return sigCt
}

// mergeRanges collapses 2^k consecutive fully-set SigRange windows, aligned
// on a SigRange*2^k boundary, into a single aggregated signature. Recursive
// because merges can combine: a run of 2^(k+1) windows merges to one block,
// but only after its two 2^k halves have each merged.
func (p *Protocol) mergeRanges(firstOneAt, pos int) int {
	if firstOneAt < 0 {
		return 0
	}
	sigRange := p.params.SigRange
	if firstOneAt%(sigRange*2) != 0 {
		firstOneAt += (sigRange * 2) - (firstOneAt % (sigRange * 2))
	}

	rangeCt := (pos - firstOneAt) / sigRange
	if rangeCt < 2 {
		return 0
	}

	max := moremath.Log2(rangeCt)
	for max > 0 {
		sizeInBlocks := 1 << max
		size := sizeInBlocks * sigRange
		if firstOneAt%size == 0 {
			return (sizeInBlocks - 1) + p.mergeRanges(firstOneAt+size, pos)
		}
		max--
	}

	return 0
}
