package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openfund/pooling/internal/api/middleware"
	"github.com/openfund/pooling/internal/domain"
	"github.com/openfund/pooling/internal/service"
	"github.com/shopspring/decimal"
)

// PoolHandler serves pool lifecycle and query endpoints.
type PoolHandler struct {
	poolSvc     *service.PoolService
	distribSvc  *service.DistributionService
	recoverySvc *service.RecoveryService
}

// NewPoolHandler creates a PoolHandler.
func NewPoolHandler(poolSvc *service.PoolService, distribSvc *service.DistributionService, recoverySvc *service.RecoveryService) *PoolHandler {
	return &PoolHandler{poolSvc: poolSvc, distribSvc: distribSvc, recoverySvc: recoverySvc}
}

// Create godoc
// POST /api/pools [auth]
// Body: {"target_amount":"1000.00","deadline_seconds":86400}
func (h *PoolHandler) Create(c *gin.Context) {
	operator := middleware.GetPrincipal(c)

	var body struct {
		TargetAmount    string `json:"target_amount"    binding:"required"`
		DeadlineSeconds int64  `json:"deadline_seconds" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	target, err := decimal.NewFromString(body.TargetAmount)
	if err != nil || !target.IsPositive() {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_TARGET", "target_amount must be a positive decimal string")
		return
	}

	pool, err := h.poolSvc.Create(c.Request.Context(), operator, target, time.Duration(body.DeadlineSeconds)*time.Second)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidParameters) {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_PARAMETERS", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not create pool")
		return
	}
	respondSuccess(c, http.StatusCreated, pool)
}

// GetByID godoc
// GET /api/pools/:id
func (h *PoolHandler) GetByID(c *gin.Context) {
	poolID, ok := parsePoolID(c)
	if !ok {
		return
	}

	pool, err := h.poolSvc.Get(c.Request.Context(), poolID)
	if err != nil {
		if errors.Is(err, domain.ErrPoolNotFound) {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", domain.ErrPoolNotFound.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch pool")
		return
	}
	respondSuccess(c, http.StatusOK, pool)
}

// List godoc
// GET /api/pools?status=open&page=1&limit=20
func (h *PoolHandler) List(c *gin.Context) {
	status := c.Query("status")
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	pools, total, err := h.poolSvc.List(c.Request.Context(), limit, offset, status)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidParameters) {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_STATUS", "unknown status filter")
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not list pools")
		return
	}
	respondList(c, pools, total, page, limit)
}

// Contributions godoc
// GET /api/pools/:id/contributions
func (h *PoolHandler) Contributions(c *gin.Context) {
	poolID, ok := parsePoolID(c)
	if !ok {
		return
	}

	cs, err := h.poolSvc.Contributions(c.Request.Context(), poolID)
	if err != nil {
		if errors.Is(err, domain.ErrPoolNotFound) {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", domain.ErrPoolNotFound.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch contributions")
		return
	}

	out := make([]domain.ContributionResponse, 0, len(cs))
	for _, contribution := range cs {
		out = append(out, contribution.ToResponse())
	}
	respondSuccess(c, http.StatusOK, out)
}

// Close godoc
// POST /api/pools/:id/close [auth, operator only]
func (h *PoolHandler) Close(c *gin.Context) {
	caller := middleware.GetPrincipal(c)
	poolID, ok := parsePoolID(c)
	if !ok {
		return
	}

	pool, err := h.poolSvc.Close(c.Request.Context(), poolID, caller)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPoolNotFound):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", domain.ErrPoolNotFound.Error())
		case errors.Is(err, domain.ErrUnauthorized):
			respondError(c, http.StatusForbidden, "ERR_NOT_OPERATOR", "only the pool operator may close it")
		case errors.Is(err, domain.ErrPoolNotOpen):
			respondError(c, http.StatusConflict, "ERR_POOL_NOT_OPEN", domain.ErrPoolNotOpen.Error())
		case errors.Is(err, domain.ErrDeadlineNotReached):
			respondError(c, http.StatusConflict, "ERR_DEADLINE_NOT_REACHED", domain.ErrDeadlineNotReached.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not close pool")
		}
		return
	}
	respondSuccess(c, http.StatusOK, pool)
}

// ReportReturn godoc
// POST /api/pools/:id/report-return [auth, operator only]
// Body: {"return_amount":"1200.00"}
func (h *PoolHandler) ReportReturn(c *gin.Context) {
	caller := middleware.GetPrincipal(c)
	poolID, ok := parsePoolID(c)
	if !ok {
		return
	}

	var body struct {
		ReturnAmount string `json:"return_amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	returnAmount, err := decimal.NewFromString(body.ReturnAmount)
	if err != nil || returnAmount.IsNegative() {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", "return_amount must be a non-negative decimal string")
		return
	}

	pool, err := h.distribSvc.ReportReturn(c.Request.Context(), poolID, caller, returnAmount)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidAmount):
			respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", domain.ErrInvalidAmount.Error())
		case errors.Is(err, domain.ErrPoolNotFound):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", domain.ErrPoolNotFound.Error())
		case errors.Is(err, domain.ErrUnauthorized):
			respondError(c, http.StatusForbidden, "ERR_NOT_OPERATOR", "only the pool operator may report the return")
		case errors.Is(err, domain.ErrPoolNotClosed):
			respondError(c, http.StatusConflict, "ERR_POOL_NOT_CLOSED", domain.ErrPoolNotClosed.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not distribute return")
		}
		return
	}
	respondSuccess(c, http.StatusOK, pool)
}

// CheckInactivity godoc
// POST /api/pools/:id/check-inactivity
// Public: anyone may trigger the abandonment check for a pool.
func (h *PoolHandler) CheckInactivity(c *gin.Context) {
	poolID, ok := parsePoolID(c)
	if !ok {
		return
	}

	pool, err := h.recoverySvc.CheckInactivity(c.Request.Context(), poolID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPoolNotFound):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", domain.ErrPoolNotFound.Error())
		case errors.Is(err, domain.ErrPoolNotEligible):
			respondError(c, http.StatusConflict, "ERR_POOL_NOT_ELIGIBLE", domain.ErrPoolNotEligible.Error())
		case errors.Is(err, domain.ErrOperatorStillActive):
			respondError(c, http.StatusConflict, "ERR_OPERATOR_STILL_ACTIVE", domain.ErrOperatorStillActive.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not run inactivity check")
		}
		return
	}
	respondSuccess(c, http.StatusOK, pool)
}
