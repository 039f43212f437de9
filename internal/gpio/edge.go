package gpio

// Edge turns a polled switch level into press events.
type Edge struct {
	last bool
}

// Rising reports true only on the poll where the switch goes from released
// to pressed.
func (e *Edge) Rising(pressed bool) bool {
	rising := pressed && !e.last
	e.last = pressed
	return rising
}
