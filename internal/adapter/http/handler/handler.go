package handler

import (
	"context"
	"encoding/hex"
	"net/http"
	"time"

	"provably-fair-dice/internal/adapter/http/dto"
	"provably-fair-dice/internal/adapter/http/middleware"
	"provably-fair-dice/internal/core/domain"
	"provably-fair-dice/internal/core/ports"
	"provably-fair-dice/pkg/apperror"
	"provably-fair-dice/pkg/response"

	"github.com/gin-gonic/gin"
)

// requireSigner returns the authenticated signer or writes SEC_001.
func requireSigner(c *gin.Context) (domain.Address, bool) {
	signer, ok := middleware.SignerFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidSigner())
		return domain.Address{}, false
	}
	return signer, true
}

// addressParam parses the :address path parameter.
func addressParam(c *gin.Context) (domain.Address, bool) {
	addr, err := domain.ParseAddress(c.Param("address"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid address: "+err.Error()))
		return domain.Address{}, false
	}
	return addr, true
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func toBetResponse(b *domain.Bet) dto.BetResponse {
	return dto.BetResponse{
		Address:   b.Address.String(),
		Vault:     b.Vault.String(),
		Player:    b.Player.String(),
		Seed:      b.Seed.String(),
		Target:    b.Target,
		Amount:    b.Amount,
		Slot:      b.Slot,
		Bump:      b.Bump,
		Lamports:  b.Lamports,
		Message:   hex.EncodeToString(b.Encode()),
		CreatedAt: formatTime(b.CreatedAt),
	}
}

func toSettlementResponse(s *domain.Settlement) dto.SettlementResponse {
	resp := dto.SettlementResponse{
		Bet:       s.Bet.String(),
		Vault:     s.Vault.String(),
		Player:    s.Player.String(),
		Kind:      string(s.Kind),
		Target:    s.Target,
		Roll:      s.Roll,
		Won:       s.Won(),
		Amount:    s.Amount,
		Payout:    s.Payout,
		Slot:      s.Slot,
		CreatedAt: formatTime(s.CreatedAt),
	}
	if len(s.Signature) > 0 {
		resp.Signature = hex.EncodeToString(s.Signature)
	}
	return resp
}

func toVaultResponse(v *domain.Vault, stats *ports.VaultStats) dto.VaultResponse {
	resp := dto.VaultResponse{
		Address: v.Address.String(),
		House:   v.House.String(),
		Bump:    v.Bump,
		Balance: v.Balance,
	}
	if stats != nil {
		resp.Stats = &dto.VaultStatsResponse{
			Resolved:    stats.Resolved,
			Refunded:    stats.Refunded,
			Wins:        stats.Wins,
			TotalStaked: stats.TotalStaked,
			TotalPaid:   stats.TotalPaid,
		}
	}
	return resp
}

func toHouseResponse(h *domain.House) dto.HouseResponse {
	return dto.HouseResponse{
		Address:    h.Address.String(),
		Name:       h.Name,
		WebhookURL: h.WebhookURL,
		CreatedAt:  formatTime(h.CreatedAt),
	}
}

// healthProbeTimeout bounds each dependency probe so a hung backend cannot
// hang the health endpoint.
const healthProbeTimeout = 2 * time.Second

type depStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthCheck reports every dependency and, when clock is set, the current
// ledger slot. Any failing dependency turns the answer into a 503.
func HealthCheck(clock ports.Clock, checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		deps := make(map[string]depStatus, len(checkers))
		healthy := true
		for _, checker := range checkers {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthProbeTimeout)
			err := checker.Ping(ctx)
			cancel()
			if err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				healthy = false
				continue
			}
			deps[checker.Name()] = depStatus{Status: "healthy"}
		}

		body := gin.H{"dependencies": deps}
		if clock != nil {
			if slot, err := clock.CurrentSlot(c.Request.Context()); err == nil {
				body["slot"] = slot
			}
		}

		code := http.StatusOK
		body["status"] = "healthy"
		if !healthy {
			code = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
		c.JSON(code, body)
	}
}
