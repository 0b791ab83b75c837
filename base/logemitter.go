package base

// LogEmitter accepts log records from inputs or the host application
type LogEmitter interface {
	EmitLog(log LogRecord)
}

// LogEmitterFunc adapts a function to LogEmitter
type LogEmitterFunc func(log LogRecord)

// EmitLog calls the function itself
func (f LogEmitterFunc) EmitLog(log LogRecord) {
	f(log)
}
