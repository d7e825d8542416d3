package handler

import (
	"encoding/hex"

	"provably-fair-dice/internal/adapter/http/dto"
	"provably-fair-dice/internal/adapter/http/middleware"
	"provably-fair-dice/internal/core/domain"
	"provably-fair-dice/internal/core/ports"
	"provably-fair-dice/pkg/apperror"
	"provably-fair-dice/pkg/response"

	"github.com/gin-gonic/gin"
)

// BetHandler handles the bet lifecycle endpoints.
type BetHandler struct {
	diceSvc      ports.DiceService
	reportingSvc ports.ReportingService
	verifier     ports.SignatureVerifier
	notifySvc    ports.NotificationService
}

// NewBetHandler creates a new bet handler. notifySvc may be nil.
func NewBetHandler(
	diceSvc ports.DiceService,
	reportingSvc ports.ReportingService,
	verifier ports.SignatureVerifier,
	notifySvc ports.NotificationService,
) *BetHandler {
	return &BetHandler{
		diceSvc:      diceSvc,
		reportingSvc: reportingSvc,
		verifier:     verifier,
		notifySvc:    notifySvc,
	}
}

// PlaceBet escrows a stake from the signer against a house vault.
func (h *BetHandler) PlaceBet(c *gin.Context) {
	player, ok := requireSigner(c)
	if !ok {
		return
	}

	var req dto.PlaceBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	house, err := domain.ParseAddress(req.House)
	if err != nil {
		response.Error(c, apperror.Validation("invalid house: "+err.Error()))
		return
	}
	seed, err := domain.ParseSeed(req.Seed)
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	bet, err := h.diceSvc.PlaceBet(c.Request.Context(), ports.PlaceBetRequest{
		Player: player,
		House:  house,
		Seed:   seed,
		Target: req.Target,
		Amount: req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, bet.Address.String())

	if h.notifySvc != nil {
		_ = h.notifySvc.NotifyBetPlaced(c.Request.Context(), house, bet)
	}

	response.Created(c, toBetResponse(bet))
}

// Resolve settles the bet at :address with a house signature. The submitted
// instruction is executed first and its result is what resolution trusts.
func (h *BetHandler) Resolve(c *gin.Context) {
	house, ok := requireSigner(c)
	if !ok {
		return
	}
	betAddr, ok := addressParam(c)
	if !ok {
		return
	}

	var req dto.ResolveBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	ix, err := toInstruction(req.Instruction)
	if err != nil {
		response.Error(c, err)
		return
	}
	signature, err := hex.DecodeString(req.Signature)
	if err != nil {
		response.Error(c, apperror.Validation("invalid signature encoding"))
		return
	}

	preceding, err := h.verifier.Execute(ix)
	if err != nil {
		response.Error(c, err)
		return
	}

	settlement, err := h.diceSvc.ResolveBet(c.Request.Context(), ports.ResolveBetRequest{
		House:     house,
		Bet:       betAddr,
		Preceding: preceding,
		Signature: signature,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.notifySvc != nil {
		_ = h.notifySvc.NotifyBetSettled(c.Request.Context(), house, settlement)
	}

	response.OK(c, toSettlementResponse(settlement))
}

// Refund returns the signer's stake once the cooldown has elapsed.
func (h *BetHandler) Refund(c *gin.Context) {
	player, ok := requireSigner(c)
	if !ok {
		return
	}
	betAddr, ok := addressParam(c)
	if !ok {
		return
	}

	var req dto.RefundBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	house, err := domain.ParseAddress(req.House)
	if err != nil {
		response.Error(c, apperror.Validation("invalid house: "+err.Error()))
		return
	}

	settlement, err := h.diceSvc.RefundBet(c.Request.Context(), ports.RefundBetRequest{
		Player: player,
		House:  house,
		Bet:    betAddr,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.notifySvc != nil {
		_ = h.notifySvc.NotifyBetSettled(c.Request.Context(), house, settlement)
	}

	response.OK(c, toSettlementResponse(settlement))
}

// GetBet returns an open bet with the message its house must sign.
func (h *BetHandler) GetBet(c *gin.Context) {
	addr, ok := addressParam(c)
	if !ok {
		return
	}

	bet, err := h.reportingSvc.GetBet(c.Request.Context(), addr)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toBetResponse(bet))
}

// GetSettlement returns how a closed bet ended.
func (h *BetHandler) GetSettlement(c *gin.Context) {
	addr, ok := addressParam(c)
	if !ok {
		return
	}

	settlement, err := h.reportingSvc.GetSettlement(c.Request.Context(), addr)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toSettlementResponse(settlement))
}

// ListOpenBets returns the open bets of the player at :address.
func (h *BetHandler) ListOpenBets(c *gin.Context) {
	player, ok := addressParam(c)
	if !ok {
		return
	}

	bets, err := h.reportingSvc.ListOpenBets(c.Request.Context(), player)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.BetResponse, 0, len(bets))
	for i := range bets {
		items = append(items, toBetResponse(&bets[i]))
	}

	response.OK(c, dto.BetListResponse{Bets: items, Total: len(items)})
}

func toInstruction(req dto.InstructionRequest) (domain.Instruction, error) {
	programID, err := domain.ParseAddress(req.ProgramID)
	if err != nil {
		return domain.Instruction{}, apperror.ErrMalformedInstruction(err)
	}
	accounts := make([]domain.Address, 0, len(req.Accounts))
	for _, a := range req.Accounts {
		addr, err := domain.ParseAddress(a)
		if err != nil {
			return domain.Instruction{}, apperror.ErrMalformedInstruction(err)
		}
		accounts = append(accounts, addr)
	}
	data, err := hex.DecodeString(req.Data)
	if err != nil {
		return domain.Instruction{}, apperror.ErrMalformedInstruction(err)
	}
	return domain.Instruction{ProgramID: programID, Accounts: accounts, Data: data}, nil
}
