package subapp

// LifecycleState is the position of a sub-application in its lifecycle.
// States only ever move forward; Destroyed is terminal.
type LifecycleState int

const (
	StateInit LifecycleState = iota
	StateLoading
	StateScriptsReady
	StateLaunching
	StateActive
	StateDestroying
	StateDestroyed
)

func (s LifecycleState) String() string {
	if s < StateInit || s > StateDestroyed {
		return "unknown"
	}
	return [...]string{
		"init",
		"loading",
		"scripts_ready",
		"launching",
		"active",
		"destroying",
		"destroyed",
	}[s]
}

// MarshalText renders the state by name so it reads well in JSON and logs.
func (s LifecycleState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
