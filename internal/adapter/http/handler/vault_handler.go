package handler

import (
	"provably-fair-dice/internal/adapter/http/dto"
	"provably-fair-dice/internal/adapter/http/middleware"
	"provably-fair-dice/internal/core/ports"
	"provably-fair-dice/pkg/apperror"
	"provably-fair-dice/pkg/response"

	"github.com/gin-gonic/gin"
)

// VaultHandler handles house vault endpoints.
type VaultHandler struct {
	diceSvc      ports.DiceService
	reportingSvc ports.ReportingService
}

// NewVaultHandler creates a new vault handler.
func NewVaultHandler(diceSvc ports.DiceService, reportingSvc ports.ReportingService) *VaultHandler {
	return &VaultHandler{diceSvc: diceSvc, reportingSvc: reportingSvc}
}

// Fund moves funds from the signer into the signer's vault.
func (h *VaultHandler) Fund(c *gin.Context) {
	house, ok := requireSigner(c)
	if !ok {
		return
	}

	var req dto.FundVaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	vault, err := h.diceSvc.Fund(c.Request.Context(), ports.FundRequest{House: house, Amount: req.Amount})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, vault.Address.String())
	response.OK(c, toVaultResponse(vault, nil))
}

// GetVault returns the vault of the house at :address with its totals.
func (h *VaultHandler) GetVault(c *gin.Context) {
	house, ok := addressParam(c)
	if !ok {
		return
	}

	vault, stats, err := h.reportingSvc.GetVault(c.Request.Context(), house)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toVaultResponse(vault, stats))
}
