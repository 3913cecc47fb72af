package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/handlers/render"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/logger"
)

const defaultProbeTimeout = 3 * time.Second

type serviceHealth struct {
	Status     string `json:"status"`
	StatusCode int    `json:"status_code,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

func handleRoot() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, map[string]string{"message": "Api-Gateway Service is running"})
	})
}

func handleHealth() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, map[string]string{"status": "ok", "detail": "API Gateway is healthy"})
	})
}

// handleHealthAll probes /health of every upstream at once
// 503 if any of them is not healthy
func handleHealthAll(upstreams []Upstream, client *http.Client, l logger.Logger) http.Handler {
	type response struct {
		Status   string                   `json:"status"`
		Services map[string]serviceHealth `json:"services"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			mu      sync.Mutex
			healthy = true
			res     = response{Status: "ok", Services: make(map[string]serviceHealth, len(upstreams)+1)}
		)
		res.Services["api_gateway"] = serviceHealth{Status: "ok"}

		g, ctx := errgroup.WithContext(r.Context())
		for _, u := range upstreams {
			g.Go(func() error {
				h := probe(ctx, client, u)

				mu.Lock()
				defer mu.Unlock()
				res.Services[u.Name] = h
				if h.Status != "ok" {
					healthy = false
				}
				return nil
			})
		}
		_ = g.Wait()

		if !healthy {
			res.Status = "error"
			l.Warn("Some upstreams are unhealthy", "services", res.Services)
			render.JSONWithStatus(w, res, http.StatusServiceUnavailable)
			return
		}
		render.JSON(w, res)
	})
}

func probe(ctx context.Context, client *http.Client, u Upstream) serviceHealth {
	ctx, cancel := context.WithTimeout(ctx, defaultProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.URL.JoinPath("health").String(), nil)
	if err != nil {
		return serviceHealth{Status: "error", Detail: err.Error()}
	}

	resp, err := client.Do(req)
	if err != nil {
		return serviceHealth{Status: "error", Detail: "unreachable"}
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return serviceHealth{Status: "error", StatusCode: resp.StatusCode, Detail: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}
	return serviceHealth{Status: "ok", StatusCode: resp.StatusCode}
}
