package utils

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/classify"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/models"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
)

// RateLimiter holds rate limiting information
type RateLimiter struct {
	// Map IP addresses to rate limiters
	ips map[string]*IPRateLimiter
	// Rate at which tokens are regenerated
	rate rate.Limit
	// Burst of requests allowed
	burst int
}

// IPRateLimiter holds the limiter for each IP
type IPRateLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{
		ips:   make(map[string]*IPRateLimiter),
		rate:  r,
		burst: burst,
	}
}

// AddIP adds a rate limiter for an IP address
func (rl *RateLimiter) AddIP(ip string) *IPRateLimiter {
	limiter := &IPRateLimiter{
		limiter:  rate.NewLimiter(rl.rate, rl.burst),
		lastSeen: time.Now(),
	}

	rl.ips[ip] = limiter

	return limiter
}

// GetIP returns the rate limiter for an IP address
func (rl *RateLimiter) GetIP(ip string) *IPRateLimiter {
	limiter, exists := rl.ips[ip]

	if !exists {
		return rl.AddIP(ip)
	}

	limiter.lastSeen = time.Now()
	return limiter
}

// RateLimitMiddleware returns a rate limiting middleware
func RateLimitMiddleware(r rate.Limit, burst int, defaultLimit int) mux.MiddlewareFunc {
	rateLimiter := NewRateLimiter(r, burst)

	// Clean up inactive IPs every 5 minutes
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		for range ticker.C {
			// Delete IPs that have been inactive for more than 30 minutes
			for ip, limiter := range rateLimiter.ips {
				if time.Since(limiter.lastSeen) > 30*time.Minute {
					delete(rateLimiter.ips, ip)
				}
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getIP(r)

			limiter := rateLimiter.GetIP(ip)

			// Custom rate limit for specific paths
			limit := defaultLimit
			if strings.HasPrefix(r.URL.Path, "/api/login") {
				// Lower limits for login attempts to prevent brute force
				limit = 5
			}

			if !limiter.limiter.AllowN(time.Now(), limit) {
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Get IP address from request
func getIP(r *http.Request) string {
	// Check X-Forwarded-For header first
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		// Take the first IP if multiple are provided
		ips := strings.Split(forwarded, ",")
		return strings.TrimSpace(ips[0])
	}

	// Check X-Real-IP header
	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	// Fallback to RemoteAddr
	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}

// InputValidationMiddleware validates input data
func InputValidationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Add security headers
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")

		// For POST and PUT requests, validate content type
		if r.Method == "POST" || r.Method == "PUT" {
			contentType := r.Header.Get("Content-Type")
			if contentType != "" && !strings.HasPrefix(contentType, "application/json") {
				http.Error(w, "Invalid content type", http.StatusBadRequest)
				return
			}
		}

		// Validate paths to prevent path traversal
		if strings.Contains(r.URL.Path, "..") || strings.Contains(r.URL.Path, "/.") {
			http.Error(w, "Invalid path", http.StatusBadRequest)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ValidateUploadEventData validates an incoming webhook upload event
func ValidateUploadEventData(ev *classify.UploadEvent) error {
	if len(ev.FilePath) == 0 {
		return fmt.Errorf("file path is required")
	}

	if len(ev.FilePath) > 4096 {
		return fmt.Errorf("file path too long")
	}

	if strings.Contains(ev.FilePath, "..") {
		return fmt.Errorf("invalid file path: path traversal detected")
	}

	if ev.SizeBytes < 0 {
		return fmt.Errorf("size must not be negative")
	}

	if len(ev.Extension) > 32 {
		return fmt.Errorf("extension too long")
	}

	return nil
}

// ValidateUserData validates user data
func ValidateUserData(user *models.User, isUpdate bool) error {
	if !isUpdate {
		// For new users, username is required
		if len(user.Username) < 3 || len(user.Username) > 50 {
			return fmt.Errorf("username must be between 3 and 50 characters")
		}
	}

	if user.Email != "" {
		// Basic email validation
		if !strings.Contains(user.Email, "@") || !strings.Contains(user.Email, ".") {
			return fmt.Errorf("invalid email format")
		}

		if len(user.Email) > 255 {
			return fmt.Errorf("email too long")
		}
	}

	if user.Role != "" && user.Role != "admin" && user.Role != "user" {
		return fmt.Errorf("role must be one of: admin, user")
	}

	return nil
}
