package core

// Logger is the app-wide leveled logger.
// Error/Fatal args may carry an error and arbitrary context values; implementations
// decide how to report them (stdout, rollbar, ...).
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
