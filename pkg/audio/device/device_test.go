package device

import (
	"errors"
	"strings"
	"testing"
)

func testDirectory() *Directory {
	return NewDirectoryFromDevices([]Device{
		{Index: 0, Name: "USB Microphone", MaxInputChannels: 1, DefaultSampleRate: 48000},
		{Index: 1, Name: "CABLE Input (VB-Audio)", MaxOutputChannels: 2, DefaultSampleRate: 44100},
		{Index: 2, Name: "CABLE Output (VB-Audio)", MaxInputChannels: 2, MaxOutputChannels: 2, DefaultSampleRate: 44100},
		{Index: 3, Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 48000},
	})
}

func TestFindExact_MatchesCaseInsensitively(t *testing.T) {
	dir := testDirectory()
	d, err := dir.FindExact("  usb microphone ", Input)
	if err != nil {
		t.Fatalf("FindExact: %v", err)
	}
	if d.Index != 0 {
		t.Errorf("Index = %d, want 0", d.Index)
	}
}

func TestFindExact_RejectsSubstring(t *testing.T) {
	dir := testDirectory()
	if _, err := dir.FindExact("Microphone", Input); !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("FindExact err = %v, want ErrDeviceNotFound", err)
	}
}

func TestFindExact_FiltersByCapability(t *testing.T) {
	dir := testDirectory()
	// The cable's input leg is playback-only; asking for capture must miss.
	if _, err := dir.FindExact("CABLE Input (VB-Audio)", Input); !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("FindExact err = %v, want ErrDeviceNotFound", err)
	}
	if _, err := dir.FindExact("CABLE Input (VB-Audio)", Output); err != nil {
		t.Fatalf("FindExact output: %v", err)
	}
}

func TestFindContains_FirstMatchWins(t *testing.T) {
	dir := testDirectory()
	d, err := dir.FindContains("cable", Output)
	if err != nil {
		t.Fatalf("FindContains: %v", err)
	}
	if d.Index != 1 {
		t.Errorf("Index = %d, want 1 (lowest-indexed match)", d.Index)
	}
}

func TestFindContains_CapabilityChangesMatch(t *testing.T) {
	dir := testDirectory()
	d, err := dir.FindContains("cable", Input)
	if err != nil {
		t.Fatalf("FindContains: %v", err)
	}
	if d.Index != 2 {
		t.Errorf("Index = %d, want 2 (first capture-capable cable leg)", d.Index)
	}
}

func TestFindContains_RejectsEmptyName(t *testing.T) {
	dir := testDirectory()
	// "" is a substring of every name; it must miss, not resolve to the
	// first input device.
	if _, err := dir.FindContains("", Input); !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("FindContains err = %v, want ErrDeviceNotFound", err)
	}
	if _, err := dir.FindContains("   ", Output); !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("FindContains blank err = %v, want ErrDeviceNotFound", err)
	}
}

func TestValidate_ReportsEveryMissingDevice(t *testing.T) {
	dir := testDirectory()
	err := dir.Validate("USB Microphone", "Ghost A", "", "Ghost B")
	if err == nil {
		t.Fatal("Validate returned nil for missing devices")
	}
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Validate err = %v, want ErrDeviceNotFound", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "Ghost A") || !strings.Contains(msg, "Ghost B") {
		t.Errorf("Validate err %q does not name both missing devices", msg)
	}
}

func TestValidate_AcceptsPartialNames(t *testing.T) {
	dir := testDirectory()
	if err := dir.Validate("cable input", "speakers"); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestRouting_ReplacesOneCoordinate(t *testing.T) {
	dir := testDirectory()

	var r Routing
	r, err := dir.RouteOutput(r, "cable input")
	if err != nil {
		t.Fatalf("RouteOutput: %v", err)
	}
	r, err = dir.RouteInput(r, "cable output")
	if err != nil {
		t.Fatalf("RouteInput: %v", err)
	}

	if r.Output.Index != 1 {
		t.Errorf("Output.Index = %d, want 1", r.Output.Index)
	}
	if r.Input.Index != 2 {
		t.Errorf("Input.Index = %d, want 2", r.Input.Index)
	}
}

func TestRouting_MissLeavesRoutingUntouched(t *testing.T) {
	dir := testDirectory()

	r, err := dir.RouteOutput(Routing{}, "cable input")
	if err != nil {
		t.Fatalf("RouteOutput: %v", err)
	}
	got, err := dir.RouteInput(r, "ghost")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("RouteInput err = %v, want ErrDeviceNotFound", err)
	}
	if got != r {
		t.Errorf("routing modified on miss: %+v != %+v", got, r)
	}
}

func TestDescribe_ListsAllDevices(t *testing.T) {
	dir := testDirectory()
	desc := dir.Describe()
	for _, name := range []string{"USB Microphone", "CABLE Input", "CABLE Output", "Speakers"} {
		if !strings.Contains(desc, name) {
			t.Errorf("Describe missing %q:\n%s", name, desc)
		}
	}
}

func TestDirection_String(t *testing.T) {
	if Input.String() != "input" || Output.String() != "output" {
		t.Errorf("Direction strings = %q/%q", Input.String(), Output.String())
	}
}
