package handlers

import (
	"strconv"

	billingrepo "hercules_backend/internal/repositories/billing"
	billingsvc "hercules_backend/internal/services/billing"
	"hercules_backend/internal/workers"
	"hercules_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type BillingHandler struct {
	BaseHandler
	lifecycle *billingsvc.LifecycleService
	ledger    *billingrepo.Repository
	worker    *workers.BillingWorker
}

func NewBillingHandler(base BaseHandler, lifecycle *billingsvc.LifecycleService, ledger *billingrepo.Repository, worker *workers.BillingWorker) *BillingHandler {
	return &BillingHandler{BaseHandler: base, lifecycle: lifecycle, ledger: ledger, worker: worker}
}

// Status returns the caller's billing state without attempting a charge.
func (h *BillingHandler) Status(c *gin.Context) {
	res, err := h.lifecycle.Status(GetDB(c), h.CurrentUserID(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, res)
}

// Retry is the user's "try my card again" button. Works from the retry
// track and from a blocked account.
func (h *BillingHandler) Retry(c *gin.Context) {
	res, err := h.lifecycle.RetryNow(c.Request.Context(), GetDB(c), h.CurrentUserID(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	if res.State == billingsvc.StateActionRequired {
		// Copy before attaching details; the sentinel is shared.
		actionErr := *apperrors.ErrPaymentActionRequired
		h.HandleServiceError(c, actionErr.WithDetails(gin.H{
			"client_secret": res.ClientSecret,
		}))
		return
	}
	h.OK(c, res)
}

// RunSweep triggers one sweep pass on demand (admin).
func (h *BillingHandler) RunSweep(c *gin.Context) {
	summary, err := h.worker.RunSweep(c.Request.Context())
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, summary)
}

// ListDocuments pages through the sales ledger (admin).
func (h *BillingHandler) ListDocuments(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	docs, total, err := h.ledger.ListDocuments(GetDB(c), limit, offset)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, gin.H{"documents": docs, "total": total, "limit": limit, "offset": offset})
}
