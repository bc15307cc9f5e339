package gateway

import (
	"net/http"

	"github.com/aro-lang/aro/internal/compiler"
)

type compileRequest struct {
	Source string `json:"source"`
}

type compileResponse struct {
	Success     bool        `json:"success"`
	Diagnostics interface{} `json:"diagnostics"`
}

// handleCompile runs the submitted source through the compiler frontend
// and reports every diagnostic raised, mirroring what `aro check` prints
// locally.
func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	var req compileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := compiler.Compile(req.Source)
	writeJSON(w, http.StatusOK, compileResponse{
		Success:     result.Success(),
		Diagnostics: result.Diagnostics,
	})
}
