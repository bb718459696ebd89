package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/masterofmagic999/mugic/internal/adapters/repository"
	"github.com/masterofmagic999/mugic/internal/domain/analysis"
)

// PieceHandler handles reference piece requests.
type PieceHandler struct {
	deps     PieceDependencies
	analyzer analysis.SheetMusicAnalyzer
}

// NewPieceHandler creates a new piece handler.
func NewPieceHandler(deps PieceDependencies, analyzer analysis.SheetMusicAnalyzer) *PieceHandler {
	return &PieceHandler{deps: deps, analyzer: analyzer}
}

// pieceRequest is the body of POST /pieces. Sheet holds a pre-extracted
// score analysis in the SheetMusicAnalysis JSON shape.
type pieceRequest struct {
	Title    string          `json:"title"`
	Composer string          `json:"composer"`
	Sheet    json.RawMessage `json:"sheet"`
}

type piecesResponse struct {
	Pieces []repository.Piece `json:"pieces"`
}

// HandleCreate handles POST /pieces requests.
func (h *PieceHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_piece"

	var req pieceRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if len(req.Sheet) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errMissing("sheet")))
		return
	}

	sheet, err := h.analyzer.AnalyzeSheet(r.Context(), bytes.NewReader(req.Sheet))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	piece, err := h.deps.CreatePiece(r.Context(), repository.Piece{
		Title:    req.Title,
		Composer: req.Composer,
		Sheet:    sheet,
	})
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, piece)
}

// HandleList handles GET /pieces requests.
func (h *PieceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_pieces"

	pieces, err := h.deps.ListPieces(r.Context())
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, piecesResponse{Pieces: pieces})
}

// HandleGet handles GET /pieces/{id} requests.
func (h *PieceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_piece"

	piece, err := h.deps.GetPiece(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, piece)
}
