package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/handlers/render"
	applog "github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/logger"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/ratelimit"
)

// Admission outcomes as reported to observer
const (
	AdmissionAllow = "allow"
	AdmissionDeny  = "deny"
	AdmissionError = "error"
)

type admission interface {
	Allow(ctx context.Context, key string) (ratelimit.Decision, error)
}

type AdmissionObserver interface {
	ObserveAdmission(ctx context.Context, decision string)
}

// ClientIP is the first address of X-Forwarded-For if present, else the peer host
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware gates every request by client address
// If the counter store fails the request is let through and the failure is logged
func RateLimitMiddleware(a admission, obs AdmissionObserver, l applog.Logger) func(http.Handler) http.Handler {
	observe := func(ctx context.Context, decision string) {
		if obs != nil {
			obs.ObserveAdmission(ctx, decision)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := ClientIP(r)

			d, err := a.Allow(r.Context(), client)
			switch {
			case err != nil:
				l.Error("Rate limiter unavailable, request admitted", "client", client, "error", err)
				observe(r.Context(), AdmissionError)
			case !d.Allowed:
				l.Warn("Rate limit exceeded", "client", client, "count", d.Count, "limit", d.Limit)
				observe(r.Context(), AdmissionDeny)
				render.TooManyRequests(w, d.RetryAfterSeconds())
				return
			default:
				observe(r.Context(), AdmissionAllow)
			}

			next.ServeHTTP(w, r)
		})
	}
}
