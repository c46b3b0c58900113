package exception

type DatabaseError struct {
	*AppError
}

func (e *DatabaseError) AppCode() string { return e.Code }

func NewDatabaseError(message string, cause error) *DatabaseError {
	return &DatabaseError{
		AppError: &AppError{
			Code:    "DATABASE_ERROR",
			Message: message,
			Cause:   cause,
		},
	}
}
