package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/openfund/pooling/internal/api/middleware"
	"github.com/openfund/pooling/internal/auth"
	"github.com/openfund/pooling/internal/config"
)

// IdentityHandler issues caller-identity tokens. There are no accounts:
// a principal is just a UUID, and a token binds requests to one.
type IdentityHandler struct {
	cfg *config.Config
}

// NewIdentityHandler creates an IdentityHandler.
func NewIdentityHandler(cfg *config.Config) *IdentityHandler {
	return &IdentityHandler{cfg: cfg}
}

// IssueToken godoc
// POST /api/identity/token
// Body: {"principal":"uuid"} — optional; omitted means mint a fresh principal.
func (h *IdentityHandler) IssueToken(c *gin.Context) {
	var body struct {
		Principal string `json:"principal"`
	}
	// Empty body is fine.
	_ = c.ShouldBindJSON(&body)

	principal := uuid.New()
	if body.Principal != "" {
		parsed, err := uuid.Parse(body.Principal)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_PRINCIPAL", "principal must be a UUID")
			return
		}
		principal = parsed
	}

	token, err := auth.IssueToken([]byte(h.cfg.JWT.Secret), principal, h.cfg.JWT.TTL)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not issue token")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"principal":  principal,
		"token":      token,
		"expires_in": int64(h.cfg.JWT.TTL.Seconds()),
	})
}

// Me godoc
// GET /api/me [auth]
func (h *IdentityHandler) Me(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{
		"principal": middleware.GetPrincipal(c),
	})
}
