package router

// State is the progress of one navigation or submission.
type State int

const (
	Idle State = iota
	Loading
	Settled
	Redirected
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Settled:
		return "settled"
	case Redirected:
		return "redirected"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Transition is reported to observers each time a navigation changes state.
type Transition struct {
	Method   string
	Path     string
	From     State
	To       State
	Location string
	Err      error
}

// Observer receives every Transition.
type Observer func(Transition)

type navigation struct {
	method    string
	path      string
	state     State
	observers []Observer
}

func (n *navigation) move(to State, location string, err error) {
	t := Transition{
		Method:   n.method,
		Path:     n.path,
		From:     n.state,
		To:       to,
		Location: location,
		Err:      err,
	}
	n.state = to
	for _, o := range n.observers {
		o(t)
	}
}
