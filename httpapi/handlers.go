package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	x402 "github.com/BranchManager69/dexter-x402"
	"github.com/BranchManager69/dexter-x402/encoding"
	"github.com/BranchManager69/dexter-x402/validation"
)

// verifyRequest is the body of POST /verify and POST /settle.
type verifyRequest struct {
	X402Version         int                      `json:"x402Version"`
	PaymentPayload      x402.PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements x402.PaymentRequirements `json:"paymentRequirements"`
}

func (s *Server) bindRequest(c *gin.Context) (*verifyRequest, bool) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return nil, false
	}
	if err := validation.ValidatePayload(req.PaymentPayload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	if err := validation.ValidateRequirements(req.PaymentRequirements); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return &req, true
}

func (s *Server) handleVerify(c *gin.Context) {
	req, ok := s.bindRequest(c)
	if !ok {
		return
	}

	res, err := s.fac.Verify(c.Request.Context(), req.PaymentPayload, req.PaymentRequirements)
	if err != nil {
		s.writeError(c, "verify", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleSettle(c *gin.Context) {
	req, ok := s.bindRequest(c)
	if !ok {
		return
	}

	res, err := s.fac.Settle(c.Request.Context(), req.PaymentPayload, req.PaymentRequirements)
	if err != nil {
		s.writeError(c, "settle", err)
		return
	}
	if res.Success {
		if header, err := encoding.EncodeSettlement(*res); err == nil {
			c.Header("X-Payment-Response", header)
		}
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleSupported(c *gin.Context) {
	c.JSON(http.StatusOK, s.fac.Supported(c.Request.Context()))
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"networks": s.fac.Networks(),
	})
}

// writeError maps facilitator errors onto HTTP statuses: anything the caller
// could have avoided is a 400, the rest is a 500.
func (s *Server) writeError(c *gin.Context, operation string, err error) {
	switch {
	case errors.Is(err, x402.ErrInvalidPayload),
		errors.Is(err, x402.ErrInvalidRequirements),
		errors.Is(err, x402.ErrUnsupportedNetwork),
		errors.Is(err, x402.ErrUnsupportedScheme),
		errors.Is(err, x402.ErrUnsupportedVersion),
		errors.Is(err, x402.ErrNoWalletCapability):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.log.Error("request failed",
			zap.String("operation", operation),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
