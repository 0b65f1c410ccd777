package middleware

import (
	"errors"

	billingrepo "hercules_backend/internal/repositories/billing"
	billingsvc "hercules_backend/internal/services/billing"
	"hercules_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// BillingGate denies blocked accounts access to the application surface.
// Mounted on everything except auth and the billing routes themselves: a
// blocked user can still log in, see their status and pay, but nothing else.
func BillingGate(store billingsvc.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserID)
		if userID == "" {
			c.Next()
			return
		}

		rec, err := store.GetRecord(GetDB(c), userID)
		if err != nil {
			// No record yet means the trial has not even started; let the
			// request through rather than lock the user out on a read error.
			if !errors.Is(err, billingrepo.ErrRecordNotFound) {
				apperrors.HandleError(c, apperrors.InternalError(err))
				c.Abort()
				return
			}
			c.Next()
			return
		}

		if rec.Blocked() {
			apperrors.HandleError(c, apperrors.ErrAccountBlocked)
			c.Abort()
			return
		}
		c.Next()
	}
}
