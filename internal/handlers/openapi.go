package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/gorilla/mux"
	"gopkg.in/yaml.v3"
)

// OpenAPIHandler serves the API description document.
type OpenAPIHandler struct {
	specPath string

	once    sync.Once
	yamlDoc []byte
	jsonDoc []byte
	loadErr error
}

// NewOpenAPIHandler creates a handler serving the OpenAPI document at specPath.
// The file is read and converted lazily on first request, then cached.
func NewOpenAPIHandler(specPath string) *OpenAPIHandler {
	absPath, err := filepath.Abs(filepath.Clean(specPath))
	if err != nil {
		absPath = specPath
	}
	return &OpenAPIHandler{specPath: absPath}
}

// RegisterRoutes registers OpenAPI routes
func (h *OpenAPIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/openapi.yaml", h.ServeYAML).Methods("GET")
	r.HandleFunc("/api/v1/openapi.json", h.ServeJSON).Methods("GET")
}

func (h *OpenAPIHandler) load() error {
	h.once.Do(func() {
		data, err := os.ReadFile(h.specPath)
		if err != nil {
			h.loadErr = err
			return
		}
		h.yamlDoc = data

		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			h.loadErr = err
			return
		}
		h.jsonDoc, h.loadErr = json.Marshal(doc)
	})
	return h.loadErr
}

// ServeYAML serves the API description in YAML format.
func (h *OpenAPIHandler) ServeYAML(w http.ResponseWriter, r *http.Request) {
	if err := h.load(); err != nil {
		http.Error(w, "OpenAPI specification not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/x-yaml")
	if _, err := w.Write(h.yamlDoc); err != nil {
		http.Error(w, "Failed to write response", http.StatusInternalServerError)
	}
}

// ServeJSON serves the API description converted to JSON.
func (h *OpenAPIHandler) ServeJSON(w http.ResponseWriter, r *http.Request) {
	if err := h.load(); err != nil {
		http.Error(w, "OpenAPI specification not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(h.jsonDoc); err != nil {
		http.Error(w, "Failed to write response", http.StatusInternalServerError)
	}
}
