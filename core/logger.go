package core

// Logger is any leveled logger the services can report through.
// args may carry anything printable; implementations may give special
// treatment to well-known types (eg. the rollbar logger sets the
// reported person from an auth.Principal argument).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
