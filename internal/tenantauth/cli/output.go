package cli

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/aussiebroadwan/tenantauth/internal/tenantauth/domain"
)

type errorBody struct {
	Error   string `json:"error"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeError renders err the way every command reports failure.
func writeError(w io.Writer, err error) {
	body := errorBody{Error: "ERROR", Status: http.StatusInternalServerError, Message: err.Error()}
	var de *domain.Error
	if errors.As(err, &de) {
		body.Error = string(de.Kind)
		body.Status = domain.StatusOf(err)
		body.Message = de.Message
	}
	_ = writeJSON(w, body)
}
