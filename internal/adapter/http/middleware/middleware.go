package middleware

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"provably-fair-dice/internal/core/domain"
	"provably-fair-dice/internal/core/ports"
	"provably-fair-dice/pkg/apperror"
	"provably-fair-dice/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// Header names for signer authentication
	HeaderSigner    = "X-Signer"
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"
	HeaderRequestID = "X-Request-ID"

	// Context keys
	CtxSigner     = "signer"
	CtxRequestID  = response.RequestIDKey
	CtxResourceID = "resource_id"
)

// AuthOptions bounds signed requests. Zero values fall back to a 60 second
// drift and a 120 second nonce lifetime.
type AuthOptions struct {
	MaxClockDrift time.Duration
	NonceTTL      time.Duration
}

func (o AuthOptions) withDefaults() AuthOptions {
	if o.MaxClockDrift <= 0 {
		o.MaxClockDrift = 60 * time.Second
	}
	if o.NonceTTL <= 0 {
		o.NonceTTL = 120 * time.Second
	}
	return o
}

// SignerAuth creates a middleware that verifies Ed25519 request signatures.
// The signer is the base58 public key of the account the request acts for.
// Pipeline: Check timestamp -> Verify signature -> Check nonce.
func SignerAuth(
	sigSvc ports.SignatureService,
	nonceStore ports.NonceStore,
	opts AuthOptions,
	log zerolog.Logger,
) gin.HandlerFunc {
	opts = opts.withDefaults()

	return func(c *gin.Context) {
		signerStr := c.GetHeader(HeaderSigner)
		signature := c.GetHeader(HeaderSignature)
		timestampStr := c.GetHeader(HeaderTimestamp)
		nonce := c.GetHeader(HeaderNonce)

		if signerStr == "" || signature == "" || timestampStr == "" || nonce == "" {
			response.Error(c, apperror.ErrInvalidSigner())
			c.Abort()
			return
		}

		signer, err := domain.ParseAddress(signerStr)
		if err != nil {
			response.Error(c, apperror.ErrInvalidSigner())
			c.Abort()
			return
		}

		// Step 1: Timestamp check
		timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
		if err != nil {
			response.Error(c, apperror.ErrTimestampExpired())
			c.Abort()
			return
		}
		now := time.Now().Unix()
		if math.Abs(float64(now-timestamp)) > opts.MaxClockDrift.Seconds() {
			response.Error(c, apperror.ErrTimestampExpired())
			c.Abort()
			return
		}

		// Step 2: Signature verification
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.Error(c, apperror.ErrRequestTooLarge())
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		canonical := sigSvc.BuildCanonicalString(
			c.Request.Method,
			c.Request.URL.Path,
			timestamp,
			nonce,
			string(bodyBytes),
		)

		if !sigSvc.Verify(signer, canonical, signature) {
			response.Error(c, apperror.ErrInvalidSignature())
			c.Abort()
			return
		}

		// Step 3: Nonce check, only for authentic requests
		isNew, err := nonceStore.CheckAndSet(c.Request.Context(), signer.String(), nonce, opts.NonceTTL)
		if err != nil {
			log.Warn().Err(err).Msg("nonce store error, allowing request")
		} else if !isNew {
			response.Error(c, apperror.ErrNonceUsed())
			c.Abort()
			return
		}

		c.Set(CtxSigner, signer)
		c.Next()
	}
}

// SignerFrom returns the authenticated signer of the request.
func SignerFrom(c *gin.Context) (domain.Address, bool) {
	v, exists := c.Get(CtxSigner)
	if !exists {
		return domain.Address{}, false
	}
	signer, ok := v.(domain.Address)
	return signer, ok
}

var requestIDRe = regexp.MustCompile(`^[a-zA-Z0-9\-]{1,64}$`)

// RequestID propagates a caller-supplied X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if !requestIDRe.MatchString(id) {
			id = uuid.New().String()
		}
		c.Set(CtxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		if signer, ok := SignerFrom(c); ok {
			event = event.Str("signer", signer.String())
		}
		if last := c.Errors.Last(); last != nil {
			event = event.Err(last.Err)
		}

		event.
			Str("request_id", c.GetString(CtxRequestID)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				response.Error(c, apperror.InternalError(fmt.Errorf("panic: %v", r)))
				c.Abort()
			}
		}()
		c.Next()
	}
}
