package integration

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"provably-fair-dice/internal/core/domain"
	"provably-fair-dice/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentBets_DuplicateSeed fires the same placement many times at
// once. The seed names the record, so exactly one may succeed and the
// player pays exactly once.
func TestConcurrentBets_DuplicateSeed(t *testing.T) {
	app := newTestApp(t)
	house, player := newActor(t, 1), newActor(t, 2)
	const playerFunds, stake = 100_000_000, 1_000_000
	app.setupHouse(t, house, player, 500_000_000, playerFunds)

	const attempts = 20
	var created, conflicts, other atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := app.placeBet(t, player, house, "424242", 50, stake)
			switch {
			case r.status == http.StatusCreated:
				created.Add(1)
			case r.errorCode == "BET_002":
				conflicts.Add(1)
			default:
				other.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, int32(attempts-1), conflicts.Load())
	assert.Equal(t, int32(0), other.Load())
	assert.Equal(t, uint64(playerFunds-stake-domain.BetRentDeposit()), app.balance(t, player.addr))
}

// TestConcurrentBets_Conservation places and resolves many bets from many
// players in parallel. Whatever the rolls, no funds may appear or vanish.
func TestConcurrentBets_Conservation(t *testing.T) {
	app := newTestApp(t)
	house := newActor(t, 1)

	const players, betsPerPlayer = 8, 5
	const stake = 100_000

	actors := make([]actor, players)
	for i := range actors {
		actors[i] = newActor(t, byte(10+i))
	}
	app.setupHouse(t, house, actors[0], 1_000_000_000, 50_000_000)
	for _, p := range actors[1:] {
		r := app.signed(t, p, http.MethodPost, "/api/v1/accounts/deposit", map[string]interface{}{"amount": 50_000_000})
		require.Equal(t, http.StatusOK, r.status, r.errorCode)
	}
	total := app.ledger.total()

	// Place
	type placed struct {
		address string
		message []byte
	}
	results := make(chan placed, players*betsPerPlayer)
	var wg sync.WaitGroup
	for pi, p := range actors {
		for b := 0; b < betsPerPlayer; b++ {
			wg.Add(1)
			go func(p actor, seed string) {
				defer wg.Done()
				r := app.placeBet(t, p, house, seed, 50, stake)
				if !assert.Equal(t, http.StatusCreated, r.status, r.errorCode) {
					return
				}
				msg, err := hex.DecodeString(r.data["message"].(string))
				if assert.NoError(t, err) {
					results <- placed{address: r.data["address"].(string), message: msg}
				}
			}(p, fmt.Sprintf("%d", pi*100+b))
		}
	}
	wg.Wait()
	close(results)

	assert.Equal(t, total, app.ledger.total(), "placement must conserve funds")

	// Resolve
	var resolved atomic.Int32
	for bet := range results {
		wg.Add(1)
		go func(bet placed) {
			defer wg.Done()
			ix := service.NewEd25519Instruction(house.key, bet.message)
			sig := ed25519.Sign(house.key, bet.message)
			r := app.signed(t, house, http.MethodPost, "/api/v1/bets/"+bet.address+"/resolve", resolveBody(ix, sig))
			if assert.Equal(t, http.StatusOK, r.status, r.errorCode) {
				resolved.Add(1)
			}
		}(bet)
	}
	wg.Wait()

	assert.Equal(t, int32(players*betsPerPlayer), resolved.Load())
	assert.Equal(t, total, app.ledger.total(), "resolution must conserve funds")

	vault := app.get(t, "/api/v1/vaults/"+house.addr.String())
	require.Equal(t, http.StatusOK, vault.status)
	stats := vault.data["stats"].(map[string]interface{})
	assert.Equal(t, float64(players*betsPerPlayer), stats["resolved"])
	assert.Equal(t, float64(players*betsPerPlayer*stake), stats["total_staked"])
}

// TestConcurrentResolveAndRefund races a resolution against a refund of the
// same record once both are allowed. The record is destroyed exactly once.
func TestConcurrentResolveAndRefund(t *testing.T) {
	app := newTestApp(t)
	house, player := newActor(t, 1), newActor(t, 2)
	app.setupHouse(t, house, player, 500_000_000, 100_000_000)
	total := app.ledger.total()

	placedBet := app.placeBet(t, player, house, "77", 50, 1_000_000)
	require.Equal(t, http.StatusCreated, placedBet.status, placedBet.errorCode)
	betAddr := placedBet.data["address"].(string)
	message, err := hex.DecodeString(placedBet.data["message"].(string))
	require.NoError(t, err)

	_, err = app.clock.Advance(context.Background(), domain.RefundCooldownSlots+1)
	require.NoError(t, err)

	var ok atomic.Int32
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		ix := service.NewEd25519Instruction(house.key, message)
		r := app.signed(t, house, http.MethodPost, "/api/v1/bets/"+betAddr+"/resolve", resolveBody(ix, ed25519.Sign(house.key, message)))
		if r.status == http.StatusOK {
			ok.Add(1)
		} else {
			assert.Equal(t, "BET_001", r.errorCode)
		}
	}()
	go func() {
		defer wg.Done()
		r := app.signed(t, player, http.MethodPost, "/api/v1/bets/"+betAddr+"/refund", map[string]interface{}{"house": house.addr.String()})
		if r.status == http.StatusOK {
			ok.Add(1)
		} else {
			assert.Equal(t, "BET_001", r.errorCode)
		}
	}()
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, total, app.ledger.total())
	assert.Equal(t, http.StatusOK, app.get(t, "/api/v1/bets/"+betAddr+"/settlement").status)
}
