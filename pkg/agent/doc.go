// Agent drives the node's update lifecycle. It ticks on a fixed interval
// and, based on its current state, consults the finalization strategy,
// queries the update graph, or drives the update backend - performing at
// most one externally-visible action and one state transition per tick.
//
// The agent is deliberately forgiving: a failing collaborator never crashes
// it and never corrupts its state. A failed tick simply leaves the machine
// where it was, and the next tick retries the same step. Finalizing is the
// last state this process ever reaches; the reboot that completes an update
// happens outside its lifetime, and the supervising environment starts a
// fresh agent afterwards.
package agent
