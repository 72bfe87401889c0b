package field

import "github.com/cockroachdb/errors"

// Error classes. Test with errors.Is.
var (
	// ErrInvalidArgument reports nil or mis-shaped input to a construction
	// or cache call. The call has no effect.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotDefined reports that a field cannot be evaluated at the current
	// location.
	ErrNotDefined = errors.New("not defined at location")
	// ErrUnsupportedDerivative reports a derivative the field's core does
	// not implement.
	ErrUnsupportedDerivative = errors.New("unsupported derivative")
	// ErrInconsistent reports a violated structural invariant such as a
	// duplicate name or a dependency cycle. The call has no effect.
	ErrInconsistent = errors.New("inconsistent")
)

func InvalidArgumentf(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

func NotDefinedf(format string, args ...any) error {
	return errors.Wrapf(ErrNotDefined, format, args...)
}

func UnsupportedDerivativef(format string, args ...any) error {
	return errors.Wrapf(ErrUnsupportedDerivative, format, args...)
}

func Inconsistentf(format string, args ...any) error {
	return errors.Wrapf(ErrInconsistent, format, args...)
}

// Class returns the name of the error class of err, or "other".
func Class(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrNotDefined):
		return "not_defined"
	case errors.Is(err, ErrUnsupportedDerivative):
		return "unsupported_derivative"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrInconsistent):
		return "inconsistent"
	}
	return "other"
}
