package handlers

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-console/internal/domain"
	"github.com/spec-kit/campus-console/internal/projection"
	apperrors "github.com/spec-kit/campus-console/pkg/util/errorutil"
)

var validate = validator.New()

// bindBody parses and validates a JSON body.
func bindBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(out); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	return validate.Struct(out)
}

// bindQuery parses and validates query parameters.
func bindQuery(c *fiber.Ctx, out any) error {
	if err := c.QueryParser(out); err != nil {
		return apperrors.NewValidationError("invalid query", nil)
	}
	return validate.Struct(out)
}

// filterFromQuery reads ?status=A,B&department=&role=&search=&sort=&order=desc.
func filterFromQuery(c *fiber.Ctx) projection.Filter {
	f := projection.Filter{
		Department: c.Query("department"),
		Role:       c.Query("role"),
		Search:     c.Query("search"),
		SortBy:     c.Query("sort"),
		Descending: strings.EqualFold(c.Query("order"), "desc"),
	}
	for _, s := range strings.Split(c.Query("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			f.Statuses = append(f.Statuses, domain.Status(s))
		}
	}
	return f
}
