package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-scheduler-api/internal/middleware"
	"github.com/noah-isme/exam-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/exam-scheduler-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// requestedBy returns metadata naming the authenticated caller, if any.
func requestedBy(c *gin.Context) map[string]interface{} {
	claims := claimsFromContext(c)
	if claims == nil {
		return nil
	}
	return map[string]interface{}{"requestedBy": claims.UserID}
}

func slotParam(c *gin.Context) (int, error) {
	slot, err := strconv.Atoi(c.Param("slot"))
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "slot must be a number")
	}
	return slot, nil
}
