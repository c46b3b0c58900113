package errors

import (
	"net/http"

	"github.com/ether/etherdoc/lib/exception"
)

var InternalServerError = Error{
	Message: "Internal server error",
	Error:   500,
}

var InvalidRequestError = Error{
	Message: "Invalid request",
	Error:   400,
}

var DocumentNotFoundError = Error{
	Message: "Document not found",
	Error:   404,
}

var DocumentAlreadyExistsError = Error{
	Message: "Document already exists",
	Error:   409,
}

func NewInvalidParamError(paramName string) Error {
	return Error{
		Message: "Invalid parameter: " + paramName,
		Error:   400,
	}
}

func NewValidationError(err error) Error {
	return Error{
		Message: "Validation failed: " + err.Error(),
		Error:   422,
	}
}

var statusByCode = map[string]int{
	exception.CodeDocumentNotFound: http.StatusNotFound,
	exception.CodeUnknownComment:   http.StatusNotFound,
	exception.CodeUnknownNode:      http.StatusNotFound,
	exception.CodeTextNotFound:     http.StatusNotFound,
	exception.CodeInvalidRange:     http.StatusBadRequest,
	exception.CodeEmptyRange:       http.StatusBadRequest,
	exception.CodeInvalidOperation: http.StatusBadRequest,
	exception.CodeHistoryBusy:      http.StatusConflict,
	exception.CodeImportFailed:     http.StatusUnprocessableEntity,
}

// FromError maps an editor error to its HTTP status and response body.
// Errors without a known code are reported as internal errors.
func FromError(err error) (int, Error) {
	code := exception.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		return http.StatusInternalServerError, InternalServerError
	}
	return status, Error{
		Message: err.Error(),
		Error:   status,
		Code:    code,
	}
}
