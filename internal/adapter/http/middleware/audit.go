package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"provably-fair-dice/internal/core/domain"
	"provably-fair-dice/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that logs successful write operations.
// It maps route patterns to audit actions.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			return
		}

		action, resourceType := mapRouteToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		var signer *domain.Address
		if s, ok := SignerFrom(c); ok {
			signer = &s
		}

		resourceID := c.GetString(CtxResourceID)
		if resourceID == "" {
			resourceID = c.Param("address")
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"request_id": c.GetString(CtxRequestID),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			Signer:       signer,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   resourceID,
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now(),
		})
	}
}

func mapRouteToAction(route, method string) (domain.AuditAction, string) {
	switch {
	case route == "/api/v1/vaults/fund" && method == http.MethodPost:
		return domain.AuditActionFund, "vault"
	case route == "/api/v1/bets" && method == http.MethodPost:
		return domain.AuditActionPlaceBet, "bet"
	case route == "/api/v1/bets/:address/resolve" && method == http.MethodPost:
		return domain.AuditActionResolveBet, "bet"
	case route == "/api/v1/bets/:address/refund" && method == http.MethodPost:
		return domain.AuditActionRefundBet, "bet"
	case route == "/api/v1/accounts/deposit" && method == http.MethodPost:
		return domain.AuditActionDeposit, "account"
	case route == "/api/v1/houses" && method == http.MethodPost:
		return domain.AuditActionRegisterHouse, "house"
	case route == "/api/v1/houses/webhook" && method == http.MethodPut:
		return domain.AuditActionUpdateWebhook, "house"
	}
	return "", ""
}
