package orchestrator

// State is a step of the linear recipe state machine.
type State string

const (
	StateUnfetched  State = "UNFETCHED"
	StateFetched    State = "FETCHED"
	StatePatched    State = "PATCHED"
	StateConfigured State = "CONFIGURED"
	StateBuilt      State = "BUILT"
	StateTested     State = "TESTED"
	StateInstalled  State = "INSTALLED"
	StateFailed     State = "FAILED"
)

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	return s == StateInstalled || s == StateFailed
}
