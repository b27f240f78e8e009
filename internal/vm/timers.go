package vm

// Timers contains the delay and sound countdown timers.
type Timers struct {
	Delay uint8
	Sound uint8
}

// Tick decrements both timers once, stopping at zero.
func (t *Timers) Tick() {
	if t.Delay > 0 {
		t.Delay--
	}
	if t.Sound > 0 {
		t.Sound--
	}
}
