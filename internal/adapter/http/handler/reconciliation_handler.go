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

// defaultListWindow is how far back List looks when no range is given.
const defaultListWindow = 30 * 24 * time.Hour

// ReconciliationHandler serves the admin reconciliation endpoints.
type ReconciliationHandler struct {
	recon ports.ReconciliationService
	now   func() time.Time
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(recon ports.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{recon: recon, now: time.Now}
}

// Run handles POST /api/v1/admin/reconciliations.
func (h *ReconciliationHandler) Run(c *gin.Context) {
	callerID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrAuthenticationRequired())
		return
	}

	var req dto.RunReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		response.Error(c, err)
		return
	}
	balance, err := domain.ParseMoney(req.TrustBalance)
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.recon.Run(c.Request.Context(), ports.RunReconciliationRequest{
		Date:                 date,
		ReportedTrustBalance: balance,
		Notes:                req.Notes,
		ReconciledBy:         callerID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toReconciliationResponse(result))
}

// Get handles GET /api/v1/admin/reconciliations/:date.
func (h *ReconciliationHandler) Get(c *gin.Context) {
	date, err := parseDate("date", c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.recon.Get(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toReconciliationResponse(result))
}

// List handles GET /api/v1/admin/reconciliations?from=&to=.
func (h *ReconciliationHandler) List(c *gin.Context) {
	to := domain.NormalizeDate(h.now())
	from := domain.NormalizeDate(to.Add(-defaultListWindow))

	var err error
	if s := c.Query("from"); s != "" {
		if from, err = parseDate("from", s); err != nil {
			response.Error(c, err)
			return
		}
	}
	if s := c.Query("to"); s != "" {
		if to, err = parseDate("to", s); err != nil {
			response.Error(c, err)
			return
		}
	}
	if from.After(to) {
		response.Error(c, apperror.Validation("from must not be after to"))
		return
	}

	results, err := h.recon.List(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.ReconciliationResponse, 0, len(results))
	for i := range results {
		items = append(items, toReconciliationResponse(&results[i]))
	}
	response.OK(c, dto.ReconciliationListResponse{
		Items: items,
		From:  from.Format(domain.DateLayout),
		To:    to.Format(domain.DateLayout),
	})
}

// Resolve handles POST /api/v1/admin/reconciliations/:date/resolve.
func (h *ReconciliationHandler) Resolve(c *gin.Context) {
	callerID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrAuthenticationRequired())
		return
	}
	date, err := parseDate("date", c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.ResolveDiscrepancyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.recon.ResolveDiscrepancy(c.Request.Context(), ports.ResolveDiscrepancyRequest{
		Date:       date,
		Notes:      req.Notes,
		ResolvedBy: callerID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toReconciliationResponse(result))
}

func toReconciliationResponse(r *ports.ReconciliationResult) dto.ReconciliationResponse {
	s := r.Snapshot
	resp := dto.ReconciliationResponse{
		Date:            s.Date.Format(domain.DateLayout),
		Status:          string(s.Status),
		ClosingBalance:  s.ClosingBalance,
		Liabilities:     s.Liabilities,
		Discrepancy:     s.Discrepancy,
		CoveragePercent: r.CoveragePercent.StringFixed(2),
		ActiveWallets:   s.ActiveWallets,
		ReconciledBy:    s.ReconciledBy.String(),
		Notes:           s.Notes,
		ResolutionNotes: s.ResolutionNotes,
		UpdatedAt:       s.UpdatedAt.Format(time.RFC3339),
	}
	if s.ResolvedAt != nil {
		at := s.ResolvedAt.Format(time.RFC3339)
		resp.ResolvedAt = &at
	}
	if s.ResolvedBy != nil {
		by := s.ResolvedBy.String()
		resp.ResolvedBy = &by
	}
	return resp
}
