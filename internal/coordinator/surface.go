package coordinator

// Surface names an independent interaction channel with its own in-flight guard.
type Surface string

const (
	SurfaceSearch Surface = "search"
	SurfaceChat   Surface = "chat"
)

// State is the status of a surface as seen by the presentation layer.
type State string

const (
	// StateIdle accepts a new request.
	StateIdle State = "idle"
	// StatePending has one request in flight and refuses any other.
	StatePending State = "pending"
	// StateError accepts a new request like StateIdle and carries the last failure message.
	StateError State = "error"
)

// SurfaceState is a snapshot of a surface's state machine.
type SurfaceState struct {
	State State
	Err   string
}

// Busy reports whether a request is in flight.
func (s SurfaceState) Busy() bool {
	return s.State == StatePending
}

// surface is the per-channel state machine: Idle|Error -> Pending -> Idle|Error. It is guarded by
// the coordinator's mutex.
type surface struct {
	state State
	err   string
}

func newSurface() surface {
	return surface{state: StateIdle}
}

// begin moves the surface to Pending. It returns false, leaving the state untouched, if a
// request is already in flight.
func (s *surface) begin() bool {
	if s.state == StatePending {
		return false
	}
	s.state = StatePending
	s.err = ""
	return true
}

func (s *surface) resolve() {
	s.state = StateIdle
	s.err = ""
}

func (s *surface) fail(msg string) {
	s.state = StateError
	s.err = msg
}

func (s *surface) dismiss() {
	if s.state == StateError {
		s.resolve()
	}
}

func (s surface) snapshot() SurfaceState {
	return SurfaceState{State: s.state, Err: s.err}
}
