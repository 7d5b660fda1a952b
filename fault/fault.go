package fault

import "fmt"

type faultCode string

const (
	UnknownCode          faultCode = "unknown"
	NotFoundCode         faultCode = "not_found"
	BadInputCode         faultCode = "bad_input"
	PermissionDeniedCode faultCode = "permission_denied"

	// BadQueryCode marks a search query the user can fix: bad syntax, an
	// unrecognized property, or an illegal comparator for a field's type.
	// The message is meant to be shown to the user unmodified.
	BadQueryCode faultCode = "bad_query"
)

type FieldErrorsMetadata map[string][]string

type fault struct {
	code     faultCode
	message  string
	metadata any
	original error
}

func New(code faultCode, message string) fault {
	return fault{
		code:    code,
		message: message,
	}
}

// Queryf builds a BadQueryCode fault with a formatted user-facing message.
func Queryf(format string, args ...any) fault {
	return New(BadQueryCode, fmt.Sprintf(format, args...))
}

// IsBadQuery reports whether err is a user-fixable search query fault.
func IsBadQuery(err error) bool {
	f, ok := err.(fault)
	return ok && f.code == BadQueryCode
}

func (f fault) WithMetadata(metadata any) fault {
	e := f
	e.metadata = metadata
	return e
}

func (f fault) WithOriginal(original error) fault {
	e := f
	e.original = original
	return e
}

func (f fault) Code() faultCode {
	return f.code
}

func (f fault) Message() string {
	return f.message
}

func (f fault) Metadata() any {
	return f.metadata
}

func (f fault) Original() error {
	return f.original
}

func (f fault) Error() string {
	if f.original != nil {
		return fmt.Sprintf("%s: %v", f.message, f.original)
	}
	return f.message
}
