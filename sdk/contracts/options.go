package contracts

// InputBackend selects the driver used to receive trigger events.
type InputBackend string

const (
	// NativeInput uses CoreMIDI on macOS and winmm on Windows.
	NativeInput InputBackend = "native"
	// RtMIDIInput uses rtmidi through gomidi and works on every platform.
	RtMIDIInput InputBackend = "rtmidi"
)

// TriggerFilter restricts which inbound channels may produce trigger events.
// An empty filter lets every channel through.
type TriggerFilter struct {
	Channels []Channel // Trigger channels to capture.
}

// Allows reports whether ch passes the filter.
func (f *TriggerFilter) Allows(ch Channel) bool {
	if f == nil || len(f.Channels) == 0 {
		return true
	}
	for _, allowed := range f.Channels {
		if allowed == ch {
			return true
		}
	}
	return false
}

// CoreMIDIConfig holds configuration for CoreMIDI.
type CoreMIDIConfig struct {
	ClientName string // Name of the MIDI client.
}

// Options defines the configuration of a pose-to-MIDI runner.
type Options struct {
	Logger              Logger          // Logger for engine and device messages.
	LogLevel            LogLevel        // Level of logging to use.
	LogFilePath         string          // Log file; empty logs to the console.
	TriggerFilter       *TriggerFilter  // Optional filter for inbound trigger channels.
	CoreMIDIConfig      *CoreMIDIConfig // Configuration specific to CoreMIDI.
	InputBackend        InputBackend    // Driver for trigger input.
	TriggerSource       TriggerSource   // Pre-built trigger source; overrides InputBackend.
	NoteSender          NoteSender      // Pre-built note sender.
	VisibilityThreshold *float64        // Landmarks at or below this visibility are ignored.
	Velocity            uint8           // Velocity of outbound Note On messages.
	EventBuffer         int             // Capacity of the trigger event channel.
	ConfigPath          string          // JSON file the tracking configuration is persisted to.
}

// Option is a function that modifies Options.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(opts *Options) {
		opts.Logger = l
	}
}

// WithLogLevel sets the logging level.
func WithLogLevel(level LogLevel) Option {
	return func(opts *Options) {
		opts.LogLevel = level
	}
}

// WithLogFilePath sends log output to the given file.
func WithLogFilePath(path string) Option {
	return func(opts *Options) {
		opts.LogFilePath = path
	}
}

// WithTriggerFilter only captures triggers on the given channels.
func WithTriggerFilter(filter TriggerFilter) Option {
	return func(opts *Options) {
		opts.TriggerFilter = &filter
	}
}

// WithCoreMIDIConfig sets the CoreMIDI configuration.
func WithCoreMIDIConfig(config CoreMIDIConfig) Option {
	return func(opts *Options) {
		opts.CoreMIDIConfig = &config
	}
}

// WithInputBackend selects the trigger input driver.
func WithInputBackend(backend InputBackend) Option {
	return func(opts *Options) {
		opts.InputBackend = backend
	}
}

// WithTriggerSource uses src instead of building one from InputBackend.
func WithTriggerSource(src TriggerSource) Option {
	return func(opts *Options) {
		opts.TriggerSource = src
	}
}

// WithNoteSender uses s instead of opening an rtmidi output.
func WithNoteSender(s NoteSender) Option {
	return func(opts *Options) {
		opts.NoteSender = s
	}
}

// WithVisibilityThreshold sets the global landmark confidence floor.
func WithVisibilityThreshold(threshold float64) Option {
	return func(opts *Options) {
		opts.VisibilityThreshold = &threshold
	}
}

// WithVelocity sets the velocity of outbound Note On messages.
func WithVelocity(velocity uint8) Option {
	return func(opts *Options) {
		opts.Velocity = velocity
	}
}

// WithEventBuffer sets the capacity of the trigger event channel.
func WithEventBuffer(size int) Option {
	return func(opts *Options) {
		opts.EventBuffer = size
	}
}

// WithConfigPath loads the tracking configuration from path and saves every
// change back to it.
func WithConfigPath(path string) Option {
	return func(opts *Options) {
		opts.ConfigPath = path
	}
}
