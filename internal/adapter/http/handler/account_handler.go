package handler

import (
	"provably-fair-dice/internal/adapter/http/dto"
	"provably-fair-dice/internal/adapter/http/middleware"
	"provably-fair-dice/internal/core/domain"
	"provably-fair-dice/internal/core/ports"
	"provably-fair-dice/pkg/apperror"
	"provably-fair-dice/pkg/response"

	"github.com/gin-gonic/gin"
)

// AccountHandler handles balance endpoints.
type AccountHandler struct {
	diceSvc      ports.DiceService
	reportingSvc ports.ReportingService
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(diceSvc ports.DiceService, reportingSvc ports.ReportingService) *AccountHandler {
	return &AccountHandler{diceSvc: diceSvc, reportingSvc: reportingSvc}
}

// Deposit credits an account, the signer's unless the body names another.
func (h *AccountHandler) Deposit(c *gin.Context) {
	signer, ok := requireSigner(c)
	if !ok {
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	target := signer
	if req.Account != nil {
		addr, err := domain.ParseAddress(*req.Account)
		if err != nil {
			response.Error(c, apperror.Validation("invalid account: "+err.Error()))
			return
		}
		target = addr
	}

	account, err := h.diceSvc.Deposit(c.Request.Context(), ports.DepositRequest{Account: target, Amount: req.Amount})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, account.Address.String())
	response.OK(c, dto.BalanceResponse{Address: account.Address.String(), Balance: account.Balance})
}

// GetBalance returns the balance at :address.
func (h *AccountHandler) GetBalance(c *gin.Context) {
	addr, ok := addressParam(c)
	if !ok {
		return
	}

	balance, err := h.reportingSvc.GetBalance(c.Request.Context(), addr)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{Address: addr.String(), Balance: balance})
}
