package device

// StreamParams configures a single capture or playback stream. Streams are
// always mono; the sample format is fixed by the Host method used to open
// them (S16 for capture/record paths, F32 for the relay paths).
type StreamParams struct {
	// DeviceIndex identifies the device within the enumeration the host most
	// recently performed. See the package comment about index lifetime.
	DeviceIndex int

	// SampleRate is the stream sample rate in Hz.
	SampleRate int

	// FramesPerBlock is the fixed number of samples delivered to (or
	// requested from) the callback per invocation.
	FramesPerBlock int
}

// Stream is an open audio stream. The callback supplied at open time fires on
// a driver-managed thread from Start until Stop.
//
// Callbacks execute under a real-time deadline: they must not block on
// unbounded locks, allocate per invocation, or panic. Any failure inside a
// callback must be absorbed locally.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// Host abstracts the operating-system audio subsystem: device enumeration
// and callback-driven stream creation. Implementations must tolerate
// concurrent stream opens but callers are expected to run a single probing
// session at a time.
type Host interface {
	// Devices enumerates the currently visible devices in platform order.
	Devices() ([]Device, error)

	// OpenCapture opens a mono signed-16-bit capture stream. cb receives each
	// full block of samples; the slice is only valid for the duration of the
	// call.
	OpenCapture(p StreamParams, cb func(in []int16)) (Stream, error)

	// OpenCaptureFloat opens a mono 32-bit-float capture stream for the relay
	// path.
	OpenCaptureFloat(p StreamParams, cb func(in []float32)) (Stream, error)

	// OpenPlayback opens a mono 32-bit-float playback stream. cb must fill
	// the whole output slice on every invocation.
	OpenPlayback(p StreamParams, cb func(out []float32)) (Stream, error)

	// Close releases the host. No streams may be opened afterwards.
	Close() error
}
