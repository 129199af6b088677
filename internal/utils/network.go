package utils

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetRealIP resolves the originating client IP for the login audit trail.
// The API runs behind a reverse proxy in every deployed environment, so the
// forwarding headers are consulted before the socket address:
//
//  1. X-Real-IP, when it carries a public address
//  2. the first public entry of X-Forwarded-For
//  3. gin's ClientIP() as the direct-connection fallback
func GetRealIP(c *gin.Context) string {
	realIP := strings.TrimSpace(c.Request.Header.Get("X-Real-IP"))
	if realIP != "" && isPublicIP(realIP) {
		return realIP
	}

	// X-Forwarded-For: client, proxy1, proxy2
	forwarded := c.Request.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		hops := strings.Split(forwarded, ",")
		for _, hop := range hops {
			candidate := strings.TrimSpace(hop)
			if isPublicIP(candidate) {
				return candidate
			}
		}
		// Every hop is private: an office VPN or in-cluster call.
		// The first hop is still the most useful thing we can record.
		first := strings.TrimSpace(hops[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}

	return c.ClientIP()
}

func isPublicIP(s string) bool {
	ip := net.ParseIP(s)
	if ip == nil {
		return false
	}
	return !ip.IsLoopback() && !ip.IsPrivate()
}
