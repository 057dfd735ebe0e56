package health

// Checker reports whether a dependency of the application is healthy.
type Checker interface {
	Check() error
}

// CheckerFunc adapts a plain function to Checker.
type CheckerFunc func() error

func (f CheckerFunc) Check() error {
	return f()
}
