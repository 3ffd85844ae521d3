package agent

import "github.com/amazonlinux/bottlerocket/updatedog/pkg/release"

// State names one step of the update lifecycle.
type State string

const (
	// StateStart is the freshly constructed agent, no side effects yet.
	StateStart State = "start"
	// StateInitializing means local setup has been acknowledged.
	StateInitializing State = "initializing"
	// StateSteady means the strategy confirmed the node safe to operate.
	StateSteady State = "steady"
	// StateUpdateFound means a candidate release has been selected.
	StateUpdateFound State = "update-found"
	// StateUpdateInProgress means staging has been requested.
	StateUpdateInProgress State = "update-in-progress"
	// StateUpdateStaged means the backend confirmed the release staged.
	StateUpdateStaged State = "update-staged"
	// StateUpdateFinalizing means finalization has been requested; the
	// process keeps this state until the node reboots out from under it.
	StateUpdateFinalizing State = "update-finalizing"
)

// progression tracks the machine's position and its target release. It is
// only ever touched from the agent's tick loop.
type progression struct {
	state  State
	target *release.Release
}

func newProgression() progression {
	return progression{state: StateStart}
}

func (p *progression) Current() State {
	return p.state
}

// Advance moves to the given state; transitions carrying a release record
// it as the target.
func (p *progression) Advance(s State) {
	p.state = s
}

func (p *progression) SetTarget(r release.Release) {
	target := r.Clone()
	p.target = &target
}

func (p *progression) Target() *release.Release {
	return p.target
}
