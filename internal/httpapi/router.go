// Package httpapi serves tablebase probes over HTTP.
package httpapi

import (
	"net/http"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/kinarow/egtb/internal/board"
	"github.com/kinarow/egtb/internal/tablebase"
)

// Handler answers probes from a fully loaded tablebase set.
type Handler struct {
	cfg      tablebase.Config
	manifest *tablebase.Manifest
	readers  []*tablebase.Reader // indexed by piece count
	metrics  *metrics
	log      zerolog.Logger
}

// NewRouter loads every table listed for cfg's shape and returns the HTTP
// handler. Digest mismatches are logged by the readers and do not stop the
// server.
func NewRouter(log zerolog.Logger, cfg tablebase.Config, m *tablebase.Manifest) (http.Handler, error) {
	tmpl, err := board.New(cfg.Dims, cfg.RunLength)
	if err != nil {
		return nil, err
	}
	h := &Handler{cfg: cfg, manifest: m, log: log}
	for pieces := 0; pieces <= tmpl.CellCount(); pieces++ {
		r, err := tablebase.OpenFromManifest(cfg, m, pieces)
		if err != nil {
			return nil, err
		}
		h.readers = append(h.readers, r)
	}
	log.Info().Int("tables", len(h.readers)).Msg("tablebase loaded")
	h.metrics = newMetrics(h.readers)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("GET /v1/probe", h.metrics.instrument("probe", h.probe))
	mux.HandleFunc("GET /v1/tables", h.metrics.instrument("tables", h.tables))
	mux.Handle("GET /metrics", h.metrics.handler())

	return RequestID(AccessLog(log, mux)), nil
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) reader(pieces int) *tablebase.Reader {
	if pieces < 0 || pieces >= len(h.readers) {
		return nil
	}
	return h.readers[pieces]
}

func (h *Handler) outcome(b *board.Board) string {
	r := h.reader(b.MoveCount())
	if r == nil {
		return board.Draw.String()
	}
	return r.OutcomeAt(b).String()
}

// probe replays ?moves=0-0,1-1 and reports the position, its outcome and
// the outcome after every legal reply.
func (h *Handler) probe(w http.ResponseWriter, r *http.Request) {
	moves, err := board.ParseMoves(r.URL.Query().Get("moves"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := board.New(h.cfg.Dims, h.cfg.RunLength)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := ProbeResponse{Moves: make([]string, 0, len(moves))}
	for _, mv := range moves {
		if err := b.PushMove(mv); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		resp.Moves = append(resp.Moves, mv.String())
	}

	result, err := b.Result()
	if err != nil {
		h.log.Debug().Err(err).Str("rid", GetRequestID(r.Context())).Msg("unreachable position")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp.Pieces = b.MoveCount()
	resp.Turn = b.Turn().String()
	resp.Result = result.String()
	resp.Outcome = h.outcome(b)
	h.metrics.outcomes.WithLabelValues(resp.Outcome).Inc()
	resp.Board = b.String()
	if result == board.InProgress {
		for _, pos := range b.PossibleMoves() {
			child := b.Copy()
			if err := child.Push(pos...); err != nil {
				continue
			}
			resp.Children = append(resp.Children, ChildResponse{
				Move:    board.NewMove(pos...).String(),
				Outcome: h.outcome(child),
			})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) tables(w http.ResponseWriter, r *http.Request) {
	out := make([]TableResponse, 0, len(h.readers))
	for _, rd := range h.readers {
		out = append(out, TableResponse{
			Pieces:   rd.Pieces(),
			File:     filepath.Base(rd.Path()),
			SHA256:   h.manifest.HashFor(rd.Pieces()),
			Entries:  rd.Len(),
			Verified: rd.Verified().String(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
