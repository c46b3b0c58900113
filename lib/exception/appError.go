package exception

import "errors"

// AppError is the base of every error the editor core reports. Code is a
// stable machine readable identifier, Message is meant for the user.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// CodeOf returns the code of the first AppError in the chain, or "" if there
// is none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	for err != nil {
		if c, ok := err.(interface{ AppCode() string }); ok {
			return c.AppCode()
		}
		err = errors.Unwrap(err)
	}
	return ""
}
