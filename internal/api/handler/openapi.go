package handler

import (
	"log/slog"
	"net/http"
	"sync"

	"sigs.k8s.io/yaml"

	"github.com/crowdpetition/crowdpetition/internal/api/middleware"
	"github.com/crowdpetition/crowdpetition/internal/api/response"
)

// OpenAPIHandler serves the embedded OpenAPI document as JSON.
type OpenAPIHandler struct {
	source []byte

	once sync.Once
	doc  []byte
	err  error
}

// NewOpenAPIHandler creates a handler for a YAML OpenAPI document. The
// conversion to JSON happens on the first request and is reused afterwards.
func NewOpenAPIHandler(yamlDoc []byte) *OpenAPIHandler {
	return &OpenAPIHandler{source: yamlDoc}
}

func (h *OpenAPIHandler) document() ([]byte, error) {
	h.once.Do(func() {
		h.doc, h.err = yaml.YAMLToJSON(h.source)
	})
	return h.doc, h.err
}

// ServeHTTP writes the JSON document.
func (h *OpenAPIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	doc, err := h.document()
	if err != nil {
		slog.Error("invalid OpenAPI document", "error", err)
		response.Err(w, http.StatusInternalServerError, response.CodeInternal, "API description unavailable", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		slog.Debug("client went away before the OpenAPI document was written", "error", err)
	}
}
