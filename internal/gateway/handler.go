// Package gateway is the platform edge. Dashboard and API traffic passes
// through to the API service unchanged; storefront traffic is resolved from
// the Host subdomain to the owning tenant first.
package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

type Handler struct {
	apiProxy   *ServiceProxy
	baseDomain string
	logger     *slog.Logger
}

func NewHandler(apiProxy *ServiceProxy, baseDomain string, logger *slog.Logger) *Handler {
	return &Handler{
		apiProxy:   apiProxy,
		baseDomain: baseDomain,
		logger:     logger,
	}
}

// HandleAPI forwards the request to the API service as-is.
func (h *Handler) HandleAPI(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}
	h.proxyRequest(w, r, path)
}

// HandleStorefront resolves the tenant named by the Host subdomain.
func (h *Handler) HandleStorefront(w http.ResponseWriter, r *http.Request) {
	sub := SubdomainFromHost(r.Host, h.baseDomain)
	if sub == "" {
		h.writeError(w, http.StatusNotFound, "storefront not found")
		return
	}

	h.proxyRequest(w, r, "/stores/subdomain/"+sub)
}

func (h *Handler) proxyRequest(w http.ResponseWriter, r *http.Request, path string) {
	resp, err := h.apiProxy.ForwardRequest(r.Context(), r, path)
	if err != nil {
		h.logger.Error("failed to forward request", "error", err, "path", path)
		h.writeError(w, http.StatusBadGateway, "service unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	w.WriteHeader(resp.StatusCode)

	h.logger.Info("request proxied", "method", r.Method, "path", path, "status", resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.logger.Error("failed to encode error response", "error", err)
	}
}
