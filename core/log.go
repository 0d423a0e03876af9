package core

// Logger is any service that can log leveled messages. Extra args are
// formatted by the implementation (errors get stack traces where supported).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
