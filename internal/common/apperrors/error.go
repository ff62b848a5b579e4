package apperrors

// Error is a chainable application error. Package-level sentinels are built
// with New and refined per call site with the derivation methods; errors.Is
// matches an error against any ancestor in its chain as well as any wrapped
// cause.
type Error interface {
	Error() string
	ErrorAll() string
	New(msg string) Error
	Msg(msg string) Error
	MsgErr(msg string, errs ...error) Error
	Err(errs ...error) Error
	Unwrap() []error
	Is(target error) bool
	SetExpandError(expand bool) Error
	SetStatusCode(code int) Error
	StatusCode() int
}
