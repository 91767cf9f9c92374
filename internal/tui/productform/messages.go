package productform

// Messages returned by the async tea.Cmds that call into the workflow.

// enteredMsg is sent when the product load finishes.
type enteredMsg struct {
	err error
}

// submittedMsg is sent when a submit finishes.
type submittedMsg struct {
	err error
}

// retriedMsg is sent when a retry of a stalled call finishes.
type retriedMsg struct {
	err error
}
