package analyzer

// Flow is the control-flow outcome of a statement. Handlers return it
// instead of panicking or threading sentinel errors.
type Flow int

const (
	FlowOk Flow = iota
	FlowReturn
	FlowBreak
	FlowContinue
	FlowThrow
)

// exits reports whether the statement left the enclosing block.
func (f Flow) exits() bool { return f != FlowOk }

// exitsFunction reports whether control left the function entirely.
func (f Flow) exitsFunction() bool { return f == FlowReturn || f == FlowThrow }
