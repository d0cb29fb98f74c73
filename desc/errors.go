package desc

import "strings"

// errorList wraps errors of every invalid declaration.
type errorList []error

func (e errorList) Error() string {
	s := make([]string, 0, len(e))
	for _, se := range e {
		s = append(s, se.Error())
	}
	return strings.Join(s, "; ")
}

// Unwrap allows to match any of errors with errors.Is.
func (e errorList) Unwrap() []error {
	return e
}

// ret returns untyped nil if error list is empty.
func (e errorList) ret() error {
	if len(e) > 0 {
		return e
	}
	return nil
}
