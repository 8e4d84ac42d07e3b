package posemidi

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/leandrodaf/posemidi/internal/midi/mididarwin"
	"github.com/leandrodaf/posemidi/internal/midi/midigomidi"
	"github.com/leandrodaf/posemidi/internal/midi/midiwindows"
	"github.com/leandrodaf/posemidi/sdk/contracts"
)

var (
	// ErrUnsupportedOS is returned when the native input backend is requested
	// on an operating system without one.
	ErrUnsupportedOS = errors.New("unsupported operating system")
	// ErrUnknownBackend is returned for an InputBackend value that names no driver.
	ErrUnknownBackend = errors.New("unknown input backend")
)

var nativeSources = map[string]func(*contracts.Options) (contracts.TriggerSource, error){
	"darwin":  mididarwin.NewTriggerSource,  // CoreMIDI
	"windows": midiwindows.NewTriggerSource, // winmm
}

// newTriggerSource builds the trigger input for options.InputBackend. drv is
// only used by the rtmidi backend.
func newTriggerSource(options *contracts.Options, drv midigomidi.Driver) (contracts.TriggerSource, error) {
	switch options.InputBackend {
	case contracts.NativeInput:
		initializer, ok := nativeSources[runtime.GOOS]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedOS, runtime.GOOS)
		}
		return initializer(options)
	case contracts.RtMIDIInput:
		return midigomidi.NewTriggerSource(drv, options), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, options.InputBackend)
	}
}
