package scraper

// State is a phase of the coordinator's run
type State int

const (
	StateIdle State = iota
	StateSelectingAccount
	StateAuthenticating
	StateScraping
	StateCooldownWait
	StateAborted
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateSelectingAccount:
		return "SELECTING_ACCOUNT"
	case StateAuthenticating:
		return "AUTHENTICATING"
	case StateScraping:
		return "SCRAPING"
	case StateCooldownWait:
		return "COOLDOWN_WAIT"
	case StateAborted:
		return "ABORTED"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no transition leaves the state
func (s State) Terminal() bool {
	return s == StateAborted || s == StateDone
}
