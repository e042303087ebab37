package pipeline

// State is the position of a run in the pipeline.
type State int

const (
	Idle State = iota
	Connecting
	Handshaking
	Calling
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Handshaking:
		return "handshaking"
	case Calling:
		return "calling"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// stageLabel is the metric label of a failing stage.
func (s State) stageLabel() string {
	switch s {
	case Connecting:
		return "connect"
	case Handshaking:
		return "handshake"
	case Calling:
		return "call"
	default:
		return s.String()
	}
}
