package middleware

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agriev/we-sdk-payments/pkg/response"
)

// IPAllowList rejects requests whose client address is outside the given
// CIDR ranges. The gateways publish their notification source ranges, and
// the check runs before any signature verification. An empty list allows
// everything (local development).
func IPAllowList(log *zap.SugaredLogger, cidrs []string) gin.HandlerFunc {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			log.Errorw("skipping unparseable allow-list entry", "cidr", c, "err", err)
			continue
		}
		nets = append(nets, n)
	}

	return func(c *gin.Context) {
		if len(nets) == 0 {
			c.Next()
			return
		}
		ip := net.ParseIP(c.ClientIP())
		if ip != nil {
			for _, n := range nets {
				if n.Contains(ip) {
					c.Next()
					return
				}
			}
		}
		log.Warnw("webhook from unlisted address", "ip", c.ClientIP(), "path", c.FullPath())
		c.AbortWithStatusJSON(http.StatusForbidden, response.Err(response.ErrorCodeInvalidSignature))
	}
}
