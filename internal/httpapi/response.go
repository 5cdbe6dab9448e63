package httpapi

import (
	"encoding/json"
	"net/http"
)

// ProbeResponse is the JSON answer for a move sequence.
type ProbeResponse struct {
	Moves    []string        `json:"moves"`
	Pieces   int             `json:"pieces"`
	Turn     string          `json:"turn"`
	Result   string          `json:"result"`  // by the rules: in-progress, x-wins, o-wins, draw
	Outcome  string          `json:"outcome"` // by perfect play, from the tablebase
	Board    string          `json:"board"`
	Children []ChildResponse `json:"children,omitempty"`
}

// ChildResponse is the perfect-play outcome after one more move.
type ChildResponse struct {
	Move    string `json:"move"`
	Outcome string `json:"outcome"`
}

// TableResponse describes one loaded table.
type TableResponse struct {
	Pieces   int    `json:"pieces"`
	File     string `json:"file"`
	SHA256   string `json:"sha256,omitempty"`
	Entries  int    `json:"entries"`
	Verified string `json:"verified"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
