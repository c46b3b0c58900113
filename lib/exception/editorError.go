package exception

import (
	"errors"
	"fmt"
)

const (
	CodeInvalidRange     = "INVALID_RANGE"
	CodeEmptyRange       = "EMPTY_RANGE"
	CodeUnknownComment   = "UNKNOWN_COMMENT"
	CodeUnknownNode      = "UNKNOWN_NODE"
	CodeTextNotFound     = "TEXT_NOT_FOUND"
	CodeHistoryBusy      = "HISTORY_BUSY"
	CodeDocumentNotFound = "DOCUMENT_NOT_FOUND"
	CodeInvalidOperation = "INVALID_OPERATION"
)

type InvalidRangeError struct {
	*AppError
}

func (e *InvalidRangeError) AppCode() string { return e.Code }

func NewInvalidRangeError(format string, args ...any) *InvalidRangeError {
	return &InvalidRangeError{AppError: &AppError{
		Code:    CodeInvalidRange,
		Message: fmt.Sprintf(format, args...),
	}}
}

type EmptyRangeError struct {
	*AppError
}

func (e *EmptyRangeError) AppCode() string { return e.Code }

func NewEmptyRangeError(message string) *EmptyRangeError {
	return &EmptyRangeError{AppError: &AppError{
		Code:    CodeEmptyRange,
		Message: message,
	}}
}

type UnknownCommentError struct {
	*AppError
	CommentID string
}

func (e *UnknownCommentError) AppCode() string { return e.Code }

func NewUnknownCommentError(id string) *UnknownCommentError {
	return &UnknownCommentError{
		AppError: &AppError{
			Code:    CodeUnknownComment,
			Message: fmt.Sprintf("comment with id '%s' does not exist", id),
		},
		CommentID: id,
	}
}

type UnknownNodeError struct {
	*AppError
	Path []int
}

func (e *UnknownNodeError) AppCode() string { return e.Code }

func NewUnknownNodeError(path []int) *UnknownNodeError {
	return &UnknownNodeError{
		AppError: &AppError{
			Code:    CodeUnknownNode,
			Message: fmt.Sprintf("no node at path %v", path),
		},
		Path: path,
	}
}

func NewUnknownNodeIDError(id string) *UnknownNodeError {
	return &UnknownNodeError{
		AppError: &AppError{
			Code:    CodeUnknownNode,
			Message: fmt.Sprintf("node with id '%s' does not exist", id),
		},
	}
}

// TextNotFoundError is reported when neither the anchor nor a text search
// can relocate a comment. It never aborts the session.
type TextNotFoundError struct {
	*AppError
	Text string
}

func (e *TextNotFoundError) AppCode() string { return e.Code }

func NewTextNotFoundError(text string) *TextNotFoundError {
	return &TextNotFoundError{
		AppError: &AppError{
			Code:    CodeTextNotFound,
			Message: fmt.Sprintf("text %q not found in document", text),
		},
		Text: text,
	}
}

type HistoryBusyError struct {
	*AppError
}

func (e *HistoryBusyError) AppCode() string { return e.Code }

func NewHistoryBusyError(state string) *HistoryBusyError {
	return &HistoryBusyError{AppError: &AppError{
		Code:    CodeHistoryBusy,
		Message: "editor is busy " + state + ", input rejected",
	}}
}

type DocumentNotFoundError struct {
	*AppError
	DocumentID string
}

func (e *DocumentNotFoundError) AppCode() string { return e.Code }

func NewDocumentNotFoundError(id string) *DocumentNotFoundError {
	return &DocumentNotFoundError{
		AppError: &AppError{
			Code:    CodeDocumentNotFound,
			Message: fmt.Sprintf("document with id '%s' does not exist", id),
		},
		DocumentID: id,
	}
}

type InvalidOperationError struct {
	*AppError
}

func (e *InvalidOperationError) AppCode() string { return e.Code }

func NewInvalidOperationError(format string, args ...any) *InvalidOperationError {
	return &InvalidOperationError{AppError: &AppError{
		Code:    CodeInvalidOperation,
		Message: fmt.Sprintf(format, args...),
	}}
}

func IsInvalidRange(err error) bool {
	var e *InvalidRangeError
	return errors.As(err, &e)
}

func IsEmptyRange(err error) bool {
	var e *EmptyRangeError
	return errors.As(err, &e)
}

func IsUnknownComment(err error) bool {
	var e *UnknownCommentError
	return errors.As(err, &e)
}

func IsUnknownNode(err error) bool {
	var e *UnknownNodeError
	return errors.As(err, &e)
}

func IsTextNotFound(err error) bool {
	var e *TextNotFoundError
	return errors.As(err, &e)
}

func IsHistoryBusy(err error) bool {
	var e *HistoryBusyError
	return errors.As(err, &e)
}

func IsDocumentNotFound(err error) bool {
	var e *DocumentNotFoundError
	return errors.As(err, &e)
}

func IsInvalidOperation(err error) bool {
	var e *InvalidOperationError
	return errors.As(err, &e)
}
