package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openfund/pooling/internal/api/middleware"
	"github.com/openfund/pooling/internal/domain"
	"github.com/openfund/pooling/internal/service"
)

// ClaimHandler serves the one-shot payout endpoint.
type ClaimHandler struct {
	claimSvc *service.ClaimService
}

// NewClaimHandler creates a ClaimHandler.
func NewClaimHandler(claimSvc *service.ClaimService) *ClaimHandler {
	return &ClaimHandler{claimSvc: claimSvc}
}

// Claim godoc
// POST /api/pools/:id/claim [auth]
func (h *ClaimHandler) Claim(c *gin.Context) {
	contributor := middleware.GetPrincipal(c)
	poolID, ok := parsePoolID(c)
	if !ok {
		return
	}

	result, err := h.claimSvc.Claim(c.Request.Context(), poolID, contributor)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPoolNotFound):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", domain.ErrPoolNotFound.Error())
		case errors.Is(err, domain.ErrPoolNotClaimable):
			respondError(c, http.StatusConflict, "ERR_POOL_NOT_CLAIMABLE", domain.ErrPoolNotClaimable.Error())
		case errors.Is(err, domain.ErrNothingToClaim):
			respondError(c, http.StatusNotFound, "ERR_NOTHING_TO_CLAIM", domain.ErrNothingToClaim.Error())
		case errors.Is(err, domain.ErrAlreadyClaimed):
			respondError(c, http.StatusConflict, "ERR_ALREADY_CLAIMED", domain.ErrAlreadyClaimed.Error())
		case errors.Is(err, domain.ErrTransferFailed):
			respondError(c, http.StatusInternalServerError, "ERR_TRANSFER_FAILED", domain.ErrTransferFailed.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not process claim")
		}
		return
	}
	respondSuccess(c, http.StatusOK, result)
}
