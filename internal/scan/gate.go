package scan

// GateState is the scan gate position.
type GateState int

const (
	GateIdle GateState = iota
	GateArmed
)

func (s GateState) String() string {
	if s == GateArmed {
		return "armed"
	}
	return "idle"
}

// Gate admits at most one frame per armed window. It is not safe for
// concurrent use; the Session worker owns it.
type Gate struct {
	state    GateState
	inFlight bool
}

// Arm opens the gate. It reports false when the gate was already armed.
func (g *Gate) Arm() bool {
	if g.state == GateArmed {
		return false
	}
	g.state = GateArmed
	return true
}

// Admit reports whether a frame may be recognized now, and marks the
// recognition as in flight when it may.
func (g *Gate) Admit() bool {
	if g.state != GateArmed || g.inFlight {
		return false
	}
	g.inFlight = true
	return true
}

// Complete closes the gate after an attempt, whatever its outcome.
func (g *Gate) Complete() {
	g.state = GateIdle
	g.inFlight = false
}

// State returns the current position.
func (g *Gate) State() GateState {
	return g.state
}

// InFlight reports whether a recognition is running.
func (g *Gate) InFlight() bool {
	return g.inFlight
}
