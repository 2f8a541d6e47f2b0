package auth

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// ErrorResponse is the JSON body of every error response
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

// ErrorHandler renders errors as {"detail","code"}. Rich errors use their
// code as status, fiber errors keep theirs and anything else is a 500.
func ErrorHandler(logger Logger) fiber.ErrorHandler {
	logger = normalizeLogger(logger)

	return func(c *fiber.Ctx, err error) error {
		status, body := renderError(err)

		if status >= http.StatusInternalServerError {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) && len(richErr.Metadata) > 0 {
				logger.Error("request failed", "path", c.Path(), "error", err, "metadata", print.MaybePrettyJSON(richErr.Metadata))
			} else {
				logger.Error("request failed", "path", c.Path(), "error", err)
			}
		}

		if status == http.StatusUnauthorized {
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		}

		return c.Status(status).JSON(body)
	}
}

func renderError(err error) (int, ErrorResponse) {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, ErrorResponse{Detail: fiberErr.Message}
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		status := richErr.Code
		if status < 400 || status > 599 {
			status = statusForCategory(richErr)
		}

		detail := richErr.Message
		if status >= http.StatusInternalServerError {
			detail = "Internal server error"
		}
		return status, ErrorResponse{Detail: detail, Code: richErr.TextCode}
	}

	return http.StatusInternalServerError, ErrorResponse{Detail: "Internal server error"}
}

func statusForCategory(richErr *goerrors.Error) int {
	switch richErr.Category {
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
