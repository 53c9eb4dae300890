package logger

// Noop returns a logger that discards everything. Useful in tests.
func Noop() Interface {
	return noopLogger{}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any)           {}
func (noopLogger) Info(string, ...any)            {}
func (noopLogger) Warn(string, ...any)            {}
func (noopLogger) Error(string, ...any)           {}
func (noopLogger) Fatal(string, ...any)           {}
func (n noopLogger) With(...any) Interface        { return n }
func (n noopLogger) WithComponent(string) Interface { return n }
func (n noopLogger) WithError(error) Interface    { return n }
