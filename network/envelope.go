package network

import "sort"

// envelope is the internal carrier the Engine schedules and drains. It is a
// two-case sum type -- singleDestEnvelope and multiDestEnvelope -- rather
// than an inheritance hierarchy, matching the original Envelope's split
// between a single resolved arrival time and a lazily recomputed one.
//
// Both cases are linked through nextSameTime so the Engine can hold one
// chain per arrival-time bucket and walk it linearly on drain.
type envelope interface {
	// nextDestID returns the id of the recipient at the current cursor.
	nextDestID() int
	// nextArrivalTime returns the arrival time for the destination at the
	// current cursor, resolving it against net if necessary.
	nextArrivalTime(net *Network) int
	// markRead advances the cursor. A no-op for singleDestEnvelope.
	markRead()
	// hasNextReader reports whether the cursor still points at a live
	// destination.
	hasNextReader() bool
	fromID() int
	message() Message

	nextSameTime() envelope
	setNextSameTime(e envelope)
}

// singleDestEnvelope carries one destination with a fully resolved arrival
// time. hasNextReader always reports false: once this envelope is
// encountered during a drain, the Engine delivers to it unconditionally and
// never reinserts it, regardless of markRead having been called yet.
type singleDestEnvelope struct {
	msg         Message
	from        int
	to          int
	arrivalTime int
	chainNext   envelope
}

func newSingleDestEnvelope(msg Message, from, to, arrivalTime int) *singleDestEnvelope {
	return &singleDestEnvelope{msg: msg, from: from, to: to, arrivalTime: arrivalTime}
}

func (e *singleDestEnvelope) nextDestID() int                  { return e.to }
func (e *singleDestEnvelope) nextArrivalTime(net *Network) int { return e.arrivalTime }
func (e *singleDestEnvelope) markRead()                        {}
func (e *singleDestEnvelope) hasNextReader() bool              { return false }
func (e *singleDestEnvelope) fromID() int                      { return e.from }
func (e *singleDestEnvelope) message() Message                 { return e.msg }
func (e *singleDestEnvelope) nextSameTime() envelope            { return e.chainNext }
func (e *singleDestEnvelope) setNextSameTime(n envelope)        { e.chainNext = n }

// multiDestEnvelope carries an ordered list of destination ids plus the
// send time and random seed needed to recompute each one's arrival time on
// demand. No arrival-time array is stored: envelopes dominate working-set
// memory in large runs, so this case trades CPU (a latency recomputation
// per delivery) for memory (no per-destination time slot).
//
// destIDs is sorted ascending by arrival time once, at construction, by the
// caller (Network.Send); curPos walks forward as deliveries complete.
type multiDestEnvelope struct {
	msg        Message
	from       int
	sendTime   int
	randomSeed int
	destIDs    []int
	curPos     int
	chainNext  envelope
}

func newMultiDestEnvelope(msg Message, from, sendTime, randomSeed int, destIDs []int) *multiDestEnvelope {
	return &multiDestEnvelope{msg: msg, from: from, sendTime: sendTime, randomSeed: randomSeed, destIDs: destIDs}
}

func (e *multiDestEnvelope) nextDestID() int {
	return e.destIDs[e.curPos]
}

func (e *multiDestEnvelope) nextArrivalTime(net *Network) int {
	to := net.nodeByID(e.nextDestID())
	from := net.nodeByID(e.from)
	jitter := latencyPseudoRandom(to.ID, e.randomSeed)
	return e.sendTime + net.latencyModel.Latency(from.Position, to.Position, jitter)
}

func (e *multiDestEnvelope) markRead() {
	e.curPos++
}

func (e *multiDestEnvelope) hasNextReader() bool {
	return e.curPos < len(e.destIDs)
}

func (e *multiDestEnvelope) fromID() int                { return e.from }
func (e *multiDestEnvelope) message() Message           { return e.msg }
func (e *multiDestEnvelope) nextSameTime() envelope      { return e.chainNext }
func (e *multiDestEnvelope) setNextSameTime(n envelope)  { e.chainNext = n }

// destArrival pairs a destination id with its resolved arrival time, used
// only transiently while Network.Send sorts destinations before building
// the envelope that will carry them.
type destArrival struct {
	destID      int
	arrivalTime int
}

// sortByArrival sorts destinations ascending by arrival time, breaking ties
// by destination id for determinism.
func sortByArrival(ds []destArrival) {
	sort.Slice(ds, func(i, j int) bool {
		if ds[i].arrivalTime != ds[j].arrivalTime {
			return ds[i].arrivalTime < ds[j].arrivalTime
		}
		return ds[i].destID < ds[j].destID
	})
}
