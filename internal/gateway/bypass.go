package gateway

import (
	"net/http"
	"strings"
)

type Route struct {
	Method string
	Path   string
}

// Requests that never need a credential
var DefaultPublicRoutes = []Route{
	{http.MethodGet, "/"},
	{http.MethodGet, "/health"},
	{http.MethodGet, "/health/all"},
	{http.MethodGet, "/docs"},
	{http.MethodGet, "/openapi.json"},
	{http.MethodPost, "/auth/login"},
	{http.MethodPost, "/auth/register"},
	{http.MethodPost, "/auth/refresh"},
	{http.MethodPost, "/auth/logout"},
	{http.MethodPost, "/auth/forgot-password"},
	{http.MethodPost, "/auth/reset-password"},
}

// Bypass is an exact method and path allow-list
type Bypass struct {
	routes map[Route]struct{}
}

func NewBypass(routes []Route) *Bypass {
	b := &Bypass{routes: make(map[Route]struct{}, len(routes))}
	for _, r := range routes {
		b.routes[Route{Method: r.Method, Path: normalizePath(r.Path)}] = struct{}{}
	}
	return b
}

func (b *Bypass) IsPublic(r *http.Request) bool {
	_, ok := b.routes[Route{Method: r.Method, Path: normalizePath(r.URL.Path)}]
	return ok
}

// "/health/" and "/health" are the same route; "/" stays as is
func normalizePath(p string) string {
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
