package exception

import "errors"

const CodeImportFailed = "IMPORT_FAILED"

type ImportError struct {
	*AppError
	Format string
}

func (e *ImportError) AppCode() string { return e.Code }

func NewImportError(format, message string, cause error) *ImportError {
	return &ImportError{
		AppError: &AppError{
			Code:    CodeImportFailed,
			Message: message,
			Cause:   cause,
		},
		Format: format,
	}
}

func IsImportError(err error) bool {
	var e *ImportError
	return errors.As(err, &e)
}
