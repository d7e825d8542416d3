package handler

import (
	"provably-fair-dice/internal/adapter/http/dto"
	"provably-fair-dice/internal/adapter/http/middleware"
	"provably-fair-dice/internal/core/ports"
	"provably-fair-dice/pkg/apperror"
	"provably-fair-dice/pkg/response"

	"github.com/gin-gonic/gin"
)

// HouseHandler handles house self-service endpoints.
type HouseHandler struct {
	houseSvc ports.HouseService
}

// NewHouseHandler creates a new house handler.
func NewHouseHandler(houseSvc ports.HouseService) *HouseHandler {
	return &HouseHandler{houseSvc: houseSvc}
}

// Register registers the signer as a house.
func (h *HouseHandler) Register(c *gin.Context) {
	signer, ok := requireSigner(c)
	if !ok {
		return
	}

	var req dto.RegisterHouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	house, err := h.houseSvc.Register(c.Request.Context(), ports.RegisterHouseRequest{
		Address:    signer,
		Name:       req.Name,
		WebhookURL: req.WebhookURL,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, signer.String())
	response.Created(c, toHouseResponse(house))
}

// GetProfile returns the profile of the house at :address.
func (h *HouseHandler) GetProfile(c *gin.Context) {
	addr, ok := addressParam(c)
	if !ok {
		return
	}

	house, err := h.houseSvc.GetProfile(c.Request.Context(), addr)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toHouseResponse(house))
}

// UpdateWebhookURL updates the signer's webhook URL. A missing URL clears it.
func (h *HouseHandler) UpdateWebhookURL(c *gin.Context) {
	signer, ok := requireSigner(c)
	if !ok {
		return
	}

	var req dto.UpdateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	if err := h.houseSvc.UpdateWebhookURL(c.Request.Context(), signer, req.WebhookURL); err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, signer.String())
	response.OK(c, gin.H{"message": "webhook URL updated"})
}
