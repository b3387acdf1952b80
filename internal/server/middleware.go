package server

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	headerScanSecret       = "x-scan-secret"
	headerMerchantAdminKey = "x-merchant-admin-key"
)

// MerchantAdminRequired gates merchant-facing mutations behind the shared
// admin key. A deployment without a configured key keeps these routes
// closed rather than open.
func (s *Server) MerchantAdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		configured := s.cfg.MerchantAdminKey
		if configured == "" {
			AbortWithError(c, ErrForbidden)
			return
		}

		presented := strings.TrimSpace(c.GetHeader(headerMerchantAdminKey))
		if subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) != 1 {
			AbortWithError(c, ErrForbidden)
			return
		}

		c.Next()
	}
}

// allowScan throttles stamp scans per store when redis is configured.
// A limiter backend failure lets the scan through: stamping must keep
// working when redis is down.
func (s *Server) allowScan(c *gin.Context, storeID string) bool {
	if !s.scanLimiter.Enabled() {
		return true
	}

	allowed, err := s.scanLimiter.AllowStore(c.Request.Context(), storeID)
	if err != nil {
		s.log.Warn("scan rate limiter unavailable", zap.Error(err))
		return true
	}
	return allowed
}
