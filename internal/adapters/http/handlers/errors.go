package handlers

import (
	"errors"
	"strconv"

	"github.com/umardraz9/mlmpk-sub009/internal/core/domain"
	"github.com/umardraz9/mlmpk-sub009/internal/core/services"
	"github.com/umardraz9/mlmpk-sub009/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// handlerLog receives unexpected failures. main replaces it with the app logger.
var handlerLog = logrus.StandardLogger()

// SetLogger sets the logger used for unexpected handler errors
func SetLogger(log *logrus.Logger) {
	if log != nil {
		handlerLog = log
	}
}

// respondError maps a service error to its HTTP response.
// Idempotency hits (AlreadyCompleted, AlreadyProcessed) are rendered by the
// caller as success and never reach here.
func respondError(c *fiber.Ctx, err error, fallback string) error {
	var verr *domain.VerificationError

	switch {
	case errors.As(err, &verr):
		return response.ErrorWithDetails(c, fiber.StatusUnprocessableEntity, "Verification failed", verr.Result)
	case errors.Is(err, domain.ErrAccessDenied):
		return response.Forbidden(c, "Membership is inactive or expired")
	case errors.Is(err, domain.ErrQuotaExceeded):
		return response.TooManyRequests(c, "Daily task quota reached, come back tomorrow")
	case errors.Is(err, domain.ErrInsufficientBalance):
		return response.UnprocessableEntity(c, "Insufficient balance")
	case errors.Is(err, domain.ErrBelowMinimumWithdrawal):
		return response.UnprocessableEntity(c, err.Error())
	case errors.Is(err, domain.ErrWithdrawalInProgress):
		return response.Conflict(c, "Another withdrawal is still open")
	case errors.Is(err, domain.ErrInvalidTransition):
		return response.Conflict(c, err.Error())
	case errors.Is(err, domain.ErrDuplicateReference):
		return response.Conflict(c, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return response.NotFound(c, "Resource not found")
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidKind):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrUserAlreadyExists):
		return response.Conflict(c, "Username or email already exists")
	case errors.Is(err, services.ErrUnknownSponsor):
		return response.BadRequest(c, "Sponsor code not found")
	case errors.Is(err, services.ErrWeakPassword):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		return response.Unauthorized(c, "Invalid username or password")
	case errors.Is(err, services.ErrUserInactive):
		return response.Forbidden(c, "Account is inactive")
	default:
		handlerLog.WithError(err).WithField("path", c.Path()).Error("❌ " + fallback)
		return response.InternalServerError(c, fallback)
	}
}

// paramID parses a positive numeric route parameter
func paramID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
