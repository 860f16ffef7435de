package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openfund/pooling/internal/api/middleware"
	"github.com/openfund/pooling/internal/config"
	"github.com/openfund/pooling/internal/domain"
	"github.com/openfund/pooling/internal/repository"
	"github.com/shopspring/decimal"
)

// WalletHandler serves balance, transaction history, and the dev deposit
// endpoint.
type WalletHandler struct {
	walletRepo *repository.WalletRepository
	cfg        *config.Config
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(walletRepo *repository.WalletRepository, cfg *config.Config) *WalletHandler {
	return &WalletHandler{walletRepo: walletRepo, cfg: cfg}
}

// GetBalance godoc
// GET /api/wallet/balance [auth]
func (h *WalletHandler) GetBalance(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	wallet, err := h.walletRepo.GetByOwner(c.Request.Context(), principal)
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			// A principal that never funded anything simply has zero.
			respondSuccess(c, http.StatusOK, gin.H{"balance": decimal.Zero})
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch wallet")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"balance": wallet.Balance})
}

// GetTransactions godoc
// GET /api/wallet/transactions?page=1&limit=20 [auth]
func (h *WalletHandler) GetTransactions(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	txns, err := h.walletRepo.GetTransactions(c.Request.Context(), principal, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch transactions")
		return
	}
	respondList(c, txns, len(txns), page, limit)
}

// Deposit godoc
// POST /api/wallet/deposit [auth, dev only]
// Body: {"amount":"1000.00"}
//
// External funding rails are outside this service; in development the
// endpoint credits play money so flows can be exercised end to end.
func (h *WalletHandler) Deposit(c *gin.Context) {
	if h.cfg.IsProd() {
		respondError(c, http.StatusForbidden, "ERR_FORBIDDEN", "deposits are disabled in production")
		return
	}
	principal := middleware.GetPrincipal(c)

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

	wallet, err := h.walletRepo.Deposit(c.Request.Context(), principal, amount)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not process deposit")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"balance": wallet.Balance})
}
