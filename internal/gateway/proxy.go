package gateway

import (
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/handlers/render"
	"github.com/Swayam595/LLM-Chatbot-Microservice-Platform/internal/logger"
)

// Upstream is a backend mounted under Prefix, like "/chatbot"
type Upstream struct {
	Name   string
	Prefix string
	URL    *url.URL
}

// NewProxy forwards request to upstream with prefix stripped
func NewProxy(u Upstream, l logger.Logger) http.Handler {
	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(u.URL)
			pr.SetXForwarded()
			// SetXForwarded drops client chain, keep it so limiter behind us sees the real client
			if prior := pr.In.Header.Get("X-Forwarded-For"); prior != "" {
				pr.Out.Header.Set("X-Forwarded-For", prior+", "+pr.Out.Header.Get("X-Forwarded-For"))
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, r.Context().Err()) {
				// Client went away
				return
			}
			l.Error("Upstream request failed", "upstream", u.Name, "path", r.URL.Path, "error", err)
			render.ServiceError(w, "Upstream service unavailable", http.StatusBadGateway)
		},
	}

	return http.StripPrefix(strings.TrimRight(u.Prefix, "/"), proxy)
}
