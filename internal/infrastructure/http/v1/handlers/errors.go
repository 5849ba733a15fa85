package handlers

import "konditer/internal/core/apperror"

func validationErr(message string, err error) *apperror.AppError {
	return apperror.NewValidation(message).WithDetail("error", err.Error())
}
