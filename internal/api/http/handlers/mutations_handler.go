package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-console/internal/api/dto"
	"github.com/spec-kit/campus-console/internal/domain"
	"github.com/spec-kit/campus-console/internal/repository"
	apperrors "github.com/spec-kit/campus-console/pkg/util/errorutil"
)

const defaultMutationLimit = 50

// MutationsHandler exposes the mutation journal. repo is nil when no
// database is configured.
type MutationsHandler struct {
	repo repository.MutationJournalRepository
}

// NewMutationsHandler constructs handler.
func NewMutationsHandler(repo repository.MutationJournalRepository) *MutationsHandler {
	return &MutationsHandler{repo: repo}
}

// List handles GET /console/mutations.
func (h *MutationsHandler) List(c *fiber.Ctx) error {
	if h.repo == nil {
		return apperrors.NewDomainError("JOURNAL_DISABLED", "mutation journal is not configured", http.StatusServiceUnavailable, nil)
	}
	var q dto.MutationListQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	if q.Limit == 0 {
		q.Limit = defaultMutationLimit
	}
	entries, err := h.repo.ListRecent(c.UserContext(), domain.Kind(q.Kind), q.Limit)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	out := make([]dto.MutationResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.NewMutationResponse(e))
	}
	return c.JSON(fiber.Map{"data": out})
}
