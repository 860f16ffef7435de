package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openfund/pooling/internal/api/middleware"
	"github.com/openfund/pooling/internal/domain"
	"github.com/openfund/pooling/internal/service"
	"github.com/shopspring/decimal"
)

// ContributionHandler serves contribution endpoints.
type ContributionHandler struct {
	contribSvc *service.ContributionService
}

// NewContributionHandler creates a ContributionHandler.
func NewContributionHandler(contribSvc *service.ContributionService) *ContributionHandler {
	return &ContributionHandler{contribSvc: contribSvc}
}

// Contribute godoc
// POST /api/pools/:id/contributions [auth]
// Body: {"amount":"250.00"}
func (h *ContributionHandler) Contribute(c *gin.Context) {
	contributor := middleware.GetPrincipal(c)
	poolID, ok := parsePoolID(c)
	if !ok {
		return
	}

	var body struct {
		Amount string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	amount, err := decimal.NewFromString(body.Amount)
	if err != nil || !amount.IsPositive() {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", "amount must be a positive decimal string")
		return
	}

	req := domain.ContributeRequest{
		PoolID:      poolID,
		Contributor: contributor,
		Amount:      amount,
	}

	contribution, err := h.contribSvc.Contribute(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidAmount):
			respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", domain.ErrInvalidAmount.Error())
		case errors.Is(err, domain.ErrPoolNotFound):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", domain.ErrPoolNotFound.Error())
		case errors.Is(err, domain.ErrPoolNotOpen):
			respondError(c, http.StatusConflict, "ERR_POOL_NOT_OPEN", domain.ErrPoolNotOpen.Error())
		case errors.Is(err, domain.ErrDeadlinePassed):
			respondError(c, http.StatusConflict, "ERR_DEADLINE_PASSED", domain.ErrDeadlinePassed.Error())
		case errors.Is(err, domain.ErrExceedsTarget):
			respondError(c, http.StatusConflict, "ERR_EXCEEDS_TARGET", domain.ErrExceedsTarget.Error())
		case errors.Is(err, domain.ErrInsufficientBalance):
			respondError(c, http.StatusPaymentRequired, "ERR_INSUFFICIENT_BALANCE", domain.ErrInsufficientBalance.Error())
		case errors.Is(err, domain.ErrWalletNotFound):
			respondError(c, http.StatusPaymentRequired, "ERR_WALLET_NOT_FOUND", domain.ErrWalletNotFound.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not process contribution")
		}
		return
	}
	respondSuccess(c, http.StatusCreated, contribution.ToResponse())
}

// GetMyContributions godoc
// GET /api/contributions/my?page=1&limit=20 [auth]
func (h *ContributionHandler) GetMyContributions(c *gin.Context) {
	contributor := middleware.GetPrincipal(c)
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	cs, err := h.contribSvc.GetMyContributions(c.Request.Context(), contributor, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch contributions")
		return
	}

	out := make([]domain.ContributionResponse, 0, len(cs))
	for _, contribution := range cs {
		out = append(out, contribution.ToResponse())
	}
	respondList(c, out, len(out), page, limit)
}

// GetMine godoc
// GET /api/pools/:id/contributions/my [auth]
func (h *ContributionHandler) GetMine(c *gin.Context) {
	contributor := middleware.GetPrincipal(c)
	poolID, ok := parsePoolID(c)
	if !ok {
		return
	}

	contribution, err := h.contribSvc.GetContribution(c.Request.Context(), poolID, contributor)
	if err != nil {
		if errors.Is(err, domain.ErrNothingToClaim) {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", "no contribution in this pool")
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch contribution")
		return
	}
	respondSuccess(c, http.StatusOK, contribution.ToResponse())
}
