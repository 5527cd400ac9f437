package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medifast/claims-api/internal/model"
	apperrors "github.com/medifast/claims-api/pkg/errors"
)

// RespondError translates domain errors into HTTP responses. Lifecycle
// denials map to 403, version conflicts and state-window violations to
// 409, and audit or persistence failures to 500. Errors that do not
// match a known sentinel reach the client as a generic 500; the cause
// stays server side.
func RespondError(c *gin.Context, err error) {
	var denied *model.TransitionDeniedError
	var appErr *apperrors.AppError

	switch {
	case errors.As(err, &appErr):
		c.JSON(appErr.StatusCode(), NewErrorResponse(appErr.Message))

	case errors.Is(err, model.ErrClaimNotFound),
		errors.Is(err, model.ErrUserNotFound),
		errors.Is(err, model.ErrNotificationNotFound):
		c.JSON(http.StatusNotFound, NewErrorResponse(err.Error()))

	case errors.As(err, &denied),
		errors.Is(err, model.ErrClaimTerminal),
		errors.Is(err, model.ErrClaimAccessDenied),
		errors.Is(err, model.ErrAccountDisabled):
		c.JSON(http.StatusForbidden, NewErrorResponse(err.Error()))

	case errors.Is(err, model.ErrConcurrentModification),
		errors.Is(err, model.ErrClaimNotAcceptingDocuments),
		errors.Is(err, model.ErrExtractedDataFrozen),
		errors.Is(err, model.ErrEmailTaken):
		c.JSON(http.StatusConflict, NewErrorResponse(err.Error()))

	case errors.Is(err, model.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(err.Error()))

	case errors.Is(err, model.ErrAccountLocked):
		c.JSON(http.StatusLocked, NewErrorResponse(err.Error()))

	default:
		internal := apperrors.Internal(err)
		_ = c.Error(err)
		c.JSON(internal.StatusCode(), NewErrorResponse(internal.Message))
	}
}
