package engine

// Command is an inbound control directive. Commands are drained by the run
// loop between dispatch cycles and never block dispatch.
type Command int

const (
	// CommandStop requests a graceful stop: in-flight evaluations finish,
	// no new ones are dispatched. A second CommandStop while already
	// stopping escalates to CommandCancel.
	CommandStop Command = iota
	// CommandCancel stops spawning and kills in-flight evaluations.
	CommandCancel
)

func (c Command) String() string {
	switch c {
	case CommandStop:
		return "stop"
	case CommandCancel:
		return "cancel"
	default:
		return "unknown"
	}
}
