package utils

import (
	"errors"

	"nilepay/internal/apperrors"

	"github.com/gofiber/fiber/v2"
)

// Respond sends a JSON response with the specified status code.
func Respond(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(data)
}

// Success sends a successful JSON response.
func Success(c *fiber.Ctx, data interface{}) error {
	return Respond(c, fiber.StatusOK, data)
}

// Created sends a JSON response with status 201.
func Created(c *fiber.Ctx, data interface{}) error {
	return Respond(c, fiber.StatusCreated, data)
}

// BadRequest sends a JSON error response with status 400.
func BadRequest(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusBadRequest, fiber.Map{"error": message})
}

// Unauthorized sends a JSON error response with status 401.
func Unauthorized(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusUnauthorized, fiber.Map{"error": message})
}

// NotFound sends a JSON error response with status 404.
func NotFound(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusNotFound, fiber.Map{"error": message})
}

// InternalError sends a JSON error response with status 500.
func InternalError(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusInternalServerError, fiber.Map{"error": message})
}

// DomainError maps engine errors to HTTP responses. Domain errors expose
// their code and message; everything else becomes an opaque 500.
func DomainError(c *fiber.Ctx, err error) error {
	var domain *apperrors.DomainError
	if errors.As(err, &domain) {
		return Respond(c, domainStatus(domain), fiber.Map{
			"error": domain.Message,
			"code":  domain.Code,
		})
	}

	var authenticity *apperrors.AuthenticityError
	if errors.As(err, &authenticity) {
		return BadRequest(c, "invalid signature")
	}

	var external *apperrors.ExternalProcessorError
	if errors.As(err, &external) {
		return Respond(c, fiber.StatusBadGateway, fiber.Map{
			"error": "payment processor unavailable",
		})
	}

	return InternalError(c, "internal server error")
}

func domainStatus(err *apperrors.DomainError) int {
	switch err {
	case apperrors.ErrWalletNotFound, apperrors.ErrTransactionNotFound:
		return fiber.StatusNotFound
	case apperrors.ErrInvalidCredentials:
		return fiber.StatusUnauthorized
	case apperrors.ErrWalletLocked, apperrors.ErrPayoutsDisabled:
		return fiber.StatusForbidden
	case apperrors.ErrEmailTaken:
		return fiber.StatusConflict
	default:
		return fiber.StatusBadRequest
	}
}
