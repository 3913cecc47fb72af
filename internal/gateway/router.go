package gateway

import (
	"context"
	"net/http"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/handlers/middleware"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/logger"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/ratelimit"
)

type admission interface {
	Allow(ctx context.Context, key string) (ratelimit.Decision, error)
}

type Observer interface {
	middleware.AdmissionObserver
	AuthObserver
}

type RouterConfig struct {
	Upstreams []Upstream

	// DefaultPublicRoutes if nil
	PublicRoutes []Route

	// Used for health probes, http.DefaultClient if nil
	HealthClient *http.Client
}

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

// NewRouter builds gateway handler
// Every request passes access log, admission and auth in this order before routing
func NewRouter(cfg RouterConfig, limiter admission, verifier tokenVerifier, obs Observer, l logger.Logger) http.Handler {
	if cfg.PublicRoutes == nil {
		cfg.PublicRoutes = DefaultPublicRoutes
	}
	if cfg.HealthClient == nil {
		cfg.HealthClient = http.DefaultClient
	}

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", handleRoot())
	mux.Handle("GET /health", handleHealth())
	mux.Handle("GET /health/{$}", handleHealth())
	mux.Handle("GET /health/all", handleHealthAll(cfg.Upstreams, cfg.HealthClient, l))
	mux.Handle("GET /health/all/{$}", handleHealthAll(cfg.Upstreams, cfg.HealthClient, l))

	for _, u := range cfg.Upstreams {
		mux.Handle(u.Prefix+"/", NewProxy(u, l))
	}

	var admissionObs middleware.AdmissionObserver
	var authObs AuthObserver
	if obs != nil {
		admissionObs, authObs = obs, obs
	}

	return chain(mux,
		middleware.LoggerMiddleware(l),
		middleware.RateLimitMiddleware(limiter, admissionObs, l),
		AuthInterceptor(NewBypass(cfg.PublicRoutes), verifier, authObs, l),
	)
}
