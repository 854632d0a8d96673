package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/account-service/internal/application"
	"github.com/oksasatya/account-service/pkg/response"
)

// statusFor maps domain errors to HTTP statuses. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, application.ErrDuplicateIdentity),
		errors.Is(err, application.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, application.ErrActionNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, application.ErrTokenNotFound),
		errors.Is(err, application.ErrTokenExpired),
		errors.Is(err, application.ErrInvalidAvatar):
		return http.StatusBadRequest
	case errors.Is(err, application.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, application.ErrAvatarStorageDisabled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		logger.WithError(err).WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
		}).Error("request failed")
		msg = http.StatusText(status)
	}
	response.Error[any](c, status, msg, nil)
}

func errorsIsNotFound(err error) bool { return errors.Is(err, application.ErrNotFound) }
