package device

// Routing is the explicit pair of devices a session sends audio to and reads
// audio from. It replaces hidden process-global "default device" state: the
// session resolves a Routing once and threads the value through every
// component that needs it, so two sessions can never interfere through shared
// defaults.
//
// The zero value means "nothing routed". Each Route call replaces exactly one
// coordinate and leaves the other untouched.
type Routing struct {
	Input  Device
	Output Device
}

// RouteInput resolves name against the directory's input-capable devices
// (substring match) and returns a copy of r with the input coordinate
// replaced. Returns [ErrDeviceNotFound] and the unmodified routing on a miss.
func (dir *Directory) RouteInput(r Routing, name string) (Routing, error) {
	d, err := dir.FindContains(name, Input)
	if err != nil {
		return r, err
	}
	r.Input = d
	return r, nil
}

// RouteOutput resolves name against the directory's output-capable devices
// (substring match) and returns a copy of r with the output coordinate
// replaced. Returns [ErrDeviceNotFound] and the unmodified routing on a miss.
func (dir *Directory) RouteOutput(r Routing, name string) (Routing, error) {
	d, err := dir.FindContains(name, Output)
	if err != nil {
		return r, err
	}
	r.Output = d
	return r, nil
}
