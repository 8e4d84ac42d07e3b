package posemidi

import (
	"fmt"
	"runtime"

	"github.com/leandrodaf/posemidi/internal/logger"
	"github.com/leandrodaf/posemidi/internal/tracking"
	"github.com/leandrodaf/posemidi/sdk/contracts"
)

// Defaults applied by NewRunner.
const (
	DefaultVelocity    uint8 = 64
	DefaultEventBuffer       = 100
	DefaultClientName        = "posemidi"
)

// applyDefaultOptions runs opts over an empty Options and fills in whatever
// they left unset.
func applyDefaultOptions(opts ...contracts.Option) (contracts.Options, error) {
	options := &contracts.Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
	}
	if options.LogLevel == 0 {
		options.LogLevel = contracts.InfoLevel
	}
	if options.CoreMIDIConfig == nil {
		options.CoreMIDIConfig = &contracts.CoreMIDIConfig{ClientName: DefaultClientName}
	}
	if options.InputBackend == "" {
		options.InputBackend = defaultInputBackend(runtime.GOOS)
	}
	if options.Velocity == 0 {
		options.Velocity = DefaultVelocity
	}
	if options.Velocity > 127 {
		return contracts.Options{}, fmt.Errorf("velocity %d out of range 1..127", options.Velocity)
	}
	if options.EventBuffer <= 0 {
		options.EventBuffer = DefaultEventBuffer
	}
	if options.VisibilityThreshold == nil {
		threshold := tracking.DefaultVisibilityThreshold
		options.VisibilityThreshold = &threshold
	}

	options.Logger.SetLevel(options.LogLevel)
	if options.LogFilePath != "" {
		options.Logger.SetDestination(contracts.FileLog, options.LogFilePath)
	}
	return *options, nil
}

func defaultInputBackend(goos string) contracts.InputBackend {
	if _, ok := nativeSources[goos]; ok {
		return contracts.NativeInput
	}
	return contracts.RtMIDIInput
}
