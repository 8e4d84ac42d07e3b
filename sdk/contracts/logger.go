package contracts

import "time"

// LogLevel represents the minimum severity a logger emits.
// The zero value means "not set" and is replaced by InfoLevel.
type LogLevel int

const (
	// DebugLevel emits everything, including per-event engine decisions.
	DebugLevel LogLevel = iota + 1
	// InfoLevel emits lifecycle messages such as device selection and resets.
	InfoLevel
	// WarnLevel emits dropped events and other recoverable conditions.
	WarnLevel
	// ErrorLevel emits failed sends and failed device operations.
	ErrorLevel
	// FatalLevel emits only messages that terminate the process.
	FatalLevel
)

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	case FatalLevel:
		return "fatal"
	default:
		return "unset"
	}
}

// LogDestination specifies where log messages are written.
type LogDestination string

const (
	// ConsoleLog writes log messages to stderr.
	ConsoleLog LogDestination = "console"
	// FileLog appends log messages to a file.
	FileLog LogDestination = "file"
)

// Field is a typed key/value pair attached to a log message.
// Call the builder methods on the value returned by Logger.Field.
type Field interface {
	Bool(key string, val bool) Field
	Int(key string, val int) Field
	Float64(key string, val float64) Field
	String(key string, val string) Field
	Time(key string, val time.Time) Field
	Int64(key string, val int64) Field
	Error(key string, val error) Field
	Uint64(key string, val uint64) Field
	Uint8(key string, val uint8) Field
}

// Logger provides leveled, structured logging.
type Logger interface {
	Info(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	Field() Field

	SetLevel(level LogLevel)
	SetDestination(dest LogDestination, filePath ...string)
}
