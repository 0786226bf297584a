package utils

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetRealIP extracts the client IP address behind reverse proxies.
//
// Priority order:
//  1. X-Real-IP when it holds a public address
//  2. the first public address in X-Forwarded-For, else its first valid entry
//  3. gin's ClientIP for direct connections
func GetRealIP(c *gin.Context) string {
	realIP := strings.TrimSpace(c.Request.Header.Get("X-Real-IP"))
	if ip := net.ParseIP(realIP); ip != nil && !isPrivateIP(ip) {
		return realIP
	}

	forwarded := c.Request.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		var firstValid string
		for _, part := range strings.Split(forwarded, ",") {
			candidate := strings.TrimSpace(part)
			ip := net.ParseIP(candidate)
			if ip == nil {
				continue
			}
			if firstValid == "" {
				firstValid = candidate
			}
			if !isPrivateIP(ip) && !ip.IsLoopback() {
				return candidate
			}
		}
		if firstValid != "" {
			return firstValid
		}
	}

	return c.ClientIP()
}

// GetUserAgent extracts the User-Agent header from the request
func GetUserAgent(c *gin.Context) string {
	ua := c.Request.UserAgent()
	if ua == "" {
		return "Unknown"
	}
	return ua
}

// isPrivateIP checks if an IP is in a private range
func isPrivateIP(ip net.IP) bool {
	return ip != nil && ip.IsPrivate()
}

// RequestMeta is the client information attached to payment audit entries
type RequestMeta struct {
	IP        string
	UserAgent string
	Device    DeviceInfo
}

// NewRequestMeta collects client information from a request
func NewRequestMeta(c *gin.Context) RequestMeta {
	userAgent := GetUserAgent(c)
	return RequestMeta{
		IP:        GetRealIP(c),
		UserAgent: userAgent,
		Device:    ParseUserAgent(userAgent),
	}
}
