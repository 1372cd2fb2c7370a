package controller

import (
	"marketplace-be/internal/pkg/serverutils"
	"marketplace-be/internal/repository"
	"marketplace-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ErrorMappings translates service sentinels into HTTP statuses.
var ErrorMappings = []serverutils.ErrorMapping{
	{Err: service.ErrSubscriptionNotFound, Status: fiber.StatusNotFound},
	{Err: service.ErrPlanNotFound, Status: fiber.StatusNotFound},
	{Err: service.ErrUserNotFound, Status: fiber.StatusNotFound},
	{Err: service.ErrPaymentNotFound, Status: fiber.StatusNotFound},
	{Err: repository.ErrNotificationNotFound, Status: fiber.StatusNotFound},
	{Err: service.ErrForbidden, Status: fiber.StatusForbidden},
	{Err: service.ErrInvalidTransition, Status: fiber.StatusConflict},
	{Err: service.ErrTransitionFailed, Status: fiber.StatusConflict},
	{Err: service.ErrJobRunning, Status: fiber.StatusConflict},
	{Err: service.ErrUnknownJob, Status: fiber.StatusBadRequest},
	{Err: service.ErrInvalidSignature, Status: fiber.StatusUnauthorized},
	{Err: serverutils.ErrUnauthenticated, Status: fiber.StatusUnauthorized},
	{Err: service.ErrGateway, Status: fiber.StatusBadGateway},
}
