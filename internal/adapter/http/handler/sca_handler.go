package handler

import (
	"time"

	"emoney-core/internal/adapter/http/dto"
	"emoney-core/internal/adapter/http/middleware"
	"emoney-core/internal/core/domain"
	"emoney-core/internal/core/ports"
	"emoney-core/pkg/apperror"
	"emoney-core/pkg/response"

	"github.com/gin-gonic/gin"
)

// ScaHandler handles strong customer authentication endpoints.
type ScaHandler struct {
	sca ports.ScaService
	now func() time.Time
}

// NewScaHandler creates a new ScaHandler.
func NewScaHandler(sca ports.ScaService) *ScaHandler {
	return &ScaHandler{sca: sca, now: time.Now}
}

// Verify handles POST /api/v1/sca/verify. The token is only ever returned here.
func (h *ScaHandler) Verify(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrAuthenticationRequired())
		return
	}

	var req dto.ScaVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	issued, err := h.sca.Issue(c.Request.Context(), ports.IssueTokenRequest{
		UserID:    userID,
		Method:    domain.ScaMethod(req.Method),
		PIN:       req.PIN,
		Assertion: req.Assertion,
		Context:   req.Context,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ScaTokenResponse{
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt.UTC().Format(time.RFC3339),
		ExpiresIn: int(domain.AuthorizationTokenTTL.Seconds()),
	})
}

// Peek handles GET /api/v1/sca/tokens/:token without consuming the token.
func (h *ScaHandler) Peek(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrAuthenticationRequired())
		return
	}

	tok, err := h.sca.Inspect(c.Request.Context(), userID, c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ScaTokenInfo{
		Method:           string(tok.Method),
		Context:          tok.Context,
		ExpiresAt:        tok.ExpiresAt.UTC().Format(time.RFC3339),
		RemainingSeconds: int(tok.Remaining(h.now()).Seconds()),
	})
}
