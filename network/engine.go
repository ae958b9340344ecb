package network

import (
	"container/heap"

	"github.com/sirupsen/logrus"
)

// timeHeap implements heap.Interface over distinct pending simulated times,
// letting the Engine jump straight to the next non-empty bucket instead of
// stepping through sparse empty ticks one at a time. A container/heap
// priority queue finds the next time; the buckets themselves (not the
// heap) hold same-time ordering.
type timeHeap []int

func (h timeHeap) Len() int            { return len(h) }
func (h timeHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h timeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timeHeap) Push(x any)         { *h = append(*h, x.(int)) }
func (h *timeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// engine is the bucketed event store: one Envelope chain and one task list
// per arrival time, plus a min-heap of the distinct times that currently
// have anything scheduled.
type engine struct {
	currentTime int

	envelopeBuckets map[int]envelope
	taskBuckets     map[int][]*task
	pendingTimes    timeHeap
	inHeap          map[int]bool
}

func newEngine() *engine {
	return &engine{
		envelopeBuckets: make(map[int]envelope),
		taskBuckets:     make(map[int][]*task),
		inHeap:          make(map[int]bool),
	}
}

// scheduleEnvelope inserts e at the head of arrivalTime's chain (LIFO
// within a bucket: new envelopes prepend). Order within a bucket is not
// observable by protocol code -- deliveries at identical timestamps are
// concurrent by definition -- so this choice is documented, not load
// bearing; it is picked because it makes insertion an O(1) pointer write.
func (e *engine) scheduleEnvelope(env envelope, arrivalTime int) {
	if arrivalTime < e.currentTime {
		panic("network: envelope scheduled in the past")
	}
	env.setNextSameTime(e.envelopeBuckets[arrivalTime])
	e.envelopeBuckets[arrivalTime] = env
	e.markTimePending(arrivalTime)
}

func (e *engine) scheduleTask(t *task, at int) {
	if at < e.currentTime {
		panic("network: task scheduled in the past")
	}
	e.taskBuckets[at] = append(e.taskBuckets[at], t)
	e.markTimePending(at)
}

func (e *engine) markTimePending(t int) {
	if !e.inHeap[t] {
		e.inHeap[t] = true
		heap.Push(&e.pendingTimes, t)
	}
}

// nextPendingTime returns the earliest time with something scheduled at or
// after currentTime, or ok=false if nothing remains.
func (e *engine) nextPendingTime() (t int, ok bool) {
	for len(e.pendingTimes) > 0 {
		t := e.pendingTimes[0]
		if _, hasEnv := e.envelopeBuckets[t]; hasEnv {
			return t, true
		}
		if _, hasTask := e.taskBuckets[t]; hasTask {
			return t, true
		}
		// Bucket was drained and left empty; its heap entry is stale.
		heap.Pop(&e.pendingTimes)
		delete(e.inHeap, t)
	}
	return 0, false
}

// runMs drains the engine through currentTime+n, inclusive of any bucket
// exactly at the horizon. net supplies the Network context envelopes need
// to resolve lazy arrival times and deliver messages.
func (e *engine) runMs(n int, net *Network) {
	horizon := e.currentTime + n
	for {
		t, ok := e.nextPendingTime()
		if !ok || t > horizon {
			e.currentTime = horizon
			return
		}
		e.currentTime = t
		e.drainBucket(t, net)
	}
}

// drainBucket delivers every envelope in currentTime's chain, then runs
// every task scheduled at currentTime: envelope deliveries at a tick all
// happen before that tick's tasks run.
func (e *engine) drainBucket(t int, net *Network) {
	chain := e.envelopeBuckets[t]
	delete(e.envelopeBuckets, t)

	for chain != nil {
		env := chain
		chain = chain.nextSameTime()
		env.setNextSameTime(nil)

		// Deliver unconditionally once, then consult hasNextReader only to
		// decide reinsertion -- singleDestEnvelope.hasNextReader is always
		// false, so this is the only path that ever delivers it.
		toID := env.nextDestID()
		to := net.nodeByID(toID)
		from := net.nodeByID(env.fromID())
		msg := env.message()

		if to.Dead {
			logrus.Warnf("[tick %07d] dropping %T: destination %d is dead", t, msg, to.ID)
		} else {
			logrus.Infof("[tick %07d] delivering %T from %d to %d", t, msg, from.ID, to.ID)
			to.BytesReceived += int64(msg.Size())
			to.MsgReceived++
			msg.Action(net, from, to)
		}
		env.markRead()

		if env.hasNextReader() {
			next := env.nextArrivalTime(net)
			e.scheduleEnvelope(env, next)
		}
		if chain == nil {
			// A multi-destination envelope whose next destination is due at
			// this same tick went back into bucket t; drain it before tasks.
			chain = e.envelopeBuckets[t]
			delete(e.envelopeBuckets, t)
		}
	}

	tasks := e.taskBuckets[t]
	delete(e.taskBuckets, t)
	for _, tk := range tasks {
		if tk.run() {
			e.scheduleTask(tk, t+tk.periodMs)
		}
	}
}
