package api

import (
	"net/http"

	"github.com/masterofmagic999/mugic/internal/domain/music"
)

// InstrumentsProvider lists the supported instruments.
type InstrumentsProvider interface {
	Instruments() []music.Instrument
}

// InstrumentsHandler handles instrument catalogue requests.
type InstrumentsHandler struct {
	deps InstrumentsProvider
}

// NewInstrumentsHandler creates a new instruments handler.
func NewInstrumentsHandler(deps InstrumentsProvider) *InstrumentsHandler {
	return &InstrumentsHandler{deps: deps}
}

type instrumentsResponse struct {
	Default     string             `json:"default"`
	Instruments []music.Instrument `json:"instruments"`
}

// HandleList handles GET /instruments requests.
func (h *InstrumentsHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, instrumentsResponse{
		Default:     music.DefaultInstrument,
		Instruments: h.deps.Instruments(),
	})
}
