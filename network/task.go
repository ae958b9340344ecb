package network

// task is a zero-argument closure scheduled to run at a simulated time,
// gated on its owning node being alive. Conditional tasks additionally
// carry start/continue predicates and repeat on a fixed period.
type task struct {
	fn       func()
	node     *Node
	periodMs int // 0 for one-shot tasks

	startCond    func() bool
	continueCond func() bool
}

// registerTask schedules fn to fire once at simulated time at, unless node
// is dead by the time the Engine reaches that tick.
func (n *Network) registerTask(fn func(), at int, node *Node) {
	n.engine.scheduleTask(&task{fn: fn, node: node}, at)
}

// registerConditionalTask schedules a repeating task. Before each firing
// the Engine checks continueCond first: if false, the task is cancelled
// permanently. Otherwise it checks startCond: if false, this period's
// firing is skipped but the task is still rescheduled for firstAt+periodMs,
// firstAt+2*periodMs, and so on.
func (n *Network) registerConditionalTask(fn func(), firstAt, periodMs int, node *Node, startCond, continueCond func() bool) {
	t := &task{
		fn:           fn,
		node:         node,
		periodMs:     periodMs,
		startCond:    startCond,
		continueCond: continueCond,
	}
	n.engine.scheduleTask(t, firstAt)
}

// run fires the task's closure if its node is alive and, for conditional
// tasks, its predicates allow it. It returns whether the task should be
// rescheduled for periodMs later (always false for one-shot tasks).
func (t *task) run() (reschedule bool) {
	if t.node != nil && t.node.Dead {
		return false
	}
	if t.continueCond != nil && !t.continueCond() {
		return false
	}
	if t.periodMs == 0 {
		t.fn()
		return false
	}
	if t.startCond == nil || t.startCond() {
		t.fn()
	}
	return true
}
