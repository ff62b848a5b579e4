package apperrors

type appError struct {
	msg        string
	base       Error
	wrapped    []error
	statusCode int
	expand     bool
}

func (e *appError) Error() string {
	return e.msg
}

// ErrorAll appends the messages of all wrapped causes when expansion is
// enabled on the error; otherwise it is equivalent to Error.
func (e *appError) ErrorAll() string {
	if !e.expand || len(e.wrapped) == 0 {
		return e.msg
	}
	msg := e.msg + ": "
	for i, err := range e.wrapped {
		if i > 0 {
			msg += "; "
		}
		msg += err.Error()
	}
	return msg
}

func (e *appError) Unwrap() []error {
	return e.wrapped
}

// New derives a child error that keeps the receiver as its base, so errors.Is
// against the receiver (or any of its ancestors) still matches.
func (e *appError) New(msg string) Error {
	return &appError{
		msg:        msg,
		base:       e,
		statusCode: e.statusCode,
		expand:     e.expand,
	}
}

// clone copies the receiver and chains it as the copy's base, so the derived
// error still matches the receiver under errors.Is.
func (e *appError) clone() *appError {
	c := *e
	c.base = e
	c.wrapped = append([]error(nil), e.wrapped...)
	return &c
}

func (e *appError) Msg(msg string) Error {
	c := e.clone()
	c.msg = msg
	return c
}

func (e *appError) MsgErr(msg string, errs ...error) Error {
	c := e.clone()
	c.msg = msg
	c.wrapped = append(c.wrapped, errs...)
	return c
}

func (e *appError) Err(errs ...error) Error {
	c := e.clone()
	c.wrapped = append(c.wrapped, errs...)
	return c
}

func (e *appError) Is(target error) bool {
	if e == target {
		return true
	}
	if e.base != nil {
		if e.base == target || e.base.Is(target) {
			return true
		}
	}
	for _, err := range e.wrapped {
		if err == target {
			return true
		}
	}
	return false
}

func (e *appError) SetExpandError(expand bool) Error {
	e.expand = expand
	return e
}

func (e *appError) SetStatusCode(code int) Error {
	e.statusCode = code
	return e
}

func (e *appError) StatusCode() int {
	return e.statusCode
}

// New creates a root error with no base.
func New(msg string) Error {
	return &appError{msg: msg}
}
