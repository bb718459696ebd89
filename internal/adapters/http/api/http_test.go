package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/masterofmagic999/mugic/internal/adapters/http/api"
	eventqueue "github.com/masterofmagic999/mugic/internal/adapters/mq/queue"
	"github.com/masterofmagic999/mugic/internal/adapters/repository"
	service "github.com/masterofmagic999/mugic/internal/app"
	"github.com/masterofmagic999/mugic/internal/domain/analysis"
	"github.com/masterofmagic999/mugic/internal/domain/feedback"
	"github.com/masterofmagic999/mugic/internal/domain/model"
	"github.com/masterofmagic999/mugic/internal/domain/music"
	"github.com/masterofmagic999/mugic/internal/domain/progress"
)

// mockDependencies records what the handlers pass through and returns
// canned results.
type mockDependencies struct {
	mu sync.Mutex

	pieces   map[string]repository.Piece
	sessions map[string]repository.Session
	jobs     map[string]model.EvaluationJob
	keys     map[string]string

	lastInstrument string
	lastAudio      analysis.AudioAnalysis

	evaluateErr error
	submitErr   error
}

func newMockDependencies() *mockDependencies {
	return &mockDependencies{
		pieces:   make(map[string]repository.Piece),
		sessions: make(map[string]repository.Session),
		jobs:     make(map[string]model.EvaluationJob),
		keys:     make(map[string]string),
	}
}

func (m *mockDependencies) CreatePiece(_ context.Context, p repository.Piece) (repository.Piece, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := p.Sheet.Validate(); err != nil {
		return repository.Piece{}, fmt.Errorf("%w: %w", repository.ErrInvalidPiece, err)
	}
	p.ID = fmt.Sprintf("piece-%d", len(m.pieces)+1)
	m.pieces[p.ID] = p
	return p, nil
}

func (m *mockDependencies) GetPiece(_ context.Context, id string) (repository.Piece, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pieces[id]
	if !ok {
		return repository.Piece{}, fmt.Errorf("%w: %s", repository.ErrPieceNotFound, id)
	}
	return p, nil
}

func (m *mockDependencies) ListPieces(_ context.Context) ([]repository.Piece, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repository.Piece, 0, len(m.pieces))
	for _, p := range m.pieces {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockDependencies) Evaluate(ctx context.Context, pieceID, instrument string, audio analysis.AudioAnalysis) (*service.Evaluation, error) {
	if m.evaluateErr != nil {
		return nil, m.evaluateErr
	}
	if _, err := m.GetPiece(ctx, pieceID); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastInstrument = instrument
	m.lastAudio = audio
	id := fmt.Sprintf("session-%d", len(m.sessions)+1)
	fb := feedback.Feedback{OverallScore: 90}
	m.sessions[id] = repository.Session{ID: id, PieceID: pieceID, Instrument: instrument, Score: 90, Feedback: fb}
	return &service.Evaluation{
		SessionID:  id,
		PieceID:    pieceID,
		Instrument: instrument,
		Feedback:   fb,
		Progress:   progress.SessionDelta{TotalAttempts: len(m.sessions)},
	}, nil
}

func (m *mockDependencies) GetSession(_ context.Context, id string) (repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return repository.Session{}, fmt.Errorf("%w: %s", repository.ErrNotFound, id)
	}
	return s, nil
}

func (m *mockDependencies) ListSessions(_ context.Context, pieceID string) ([]repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pieces[pieceID]; !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrPieceNotFound, pieceID)
	}
	var out []repository.Session
	for _, s := range m.sessions {
		if s.PieceID == pieceID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockDependencies) CompareWithPrevious(ctx context.Context, _, sessionID string) (progress.SessionDelta, error) {
	s, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return progress.SessionDelta{}, err
	}
	return progress.Compare(s.Feedback, nil), nil
}

func (m *mockDependencies) SubmitJob(_ context.Context, pieceID, key, instrument string, _ analysis.AudioAnalysis) (model.EvaluationJob, bool, error) {
	if m.submitErr != nil {
		return model.EvaluationJob{}, false, m.submitErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pieces[pieceID]; !ok {
		return model.EvaluationJob{}, false, fmt.Errorf("%w: %s", repository.ErrPieceNotFound, pieceID)
	}
	if owner, ok := m.keys[key]; ok && key != "" {
		return m.jobs[owner], true, nil
	}
	j := model.EvaluationJob{
		ID:             fmt.Sprintf("job-%d", len(m.jobs)+1),
		PieceID:        pieceID,
		IdempotencyKey: key,
		Instrument:     instrument,
		Status:         model.JobQueued,
		SubmittedAt:    time.Now(),
	}
	m.jobs[j.ID] = j
	if key != "" {
		m.keys[key] = j.ID
	}
	return j, false, nil
}

func (m *mockDependencies) GetJob(_ context.Context, id string) (model.EvaluationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return model.EvaluationJob{}, fmt.Errorf("%w: %s", service.ErrJobNotFound, id)
	}
	return j, nil
}

func (m *mockDependencies) GetStats(_ context.Context) map[string]interface{} {
	return map[string]interface{}{"started": true, "workerCount": 2}
}

func (m *mockDependencies) Instruments() []music.Instrument {
	return music.Instruments
}

const sheetJSON = `{"notes":[{"pitch":"C4","start_time":0,"duration":0.5},{"pitch":"E4","start_time":0.5,"duration":0.5}],"tempo":120}`

const audioJSON = `{"notes":[{"pitch":"C4","start_time":0,"duration":0.5},{"midi":64,"start_time":0.5,"duration":0.5}]}`

func newMux(deps api.Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body
}

func createPiece(mux *http.ServeMux) string {
	w := do(mux, http.MethodPost, "/pieces", `{"title":"Etude","composer":"Czerny","sheet":`+sheetJSON+`}`)
	var p repository.Piece
	_ = json.Unmarshal(w.Body.Bytes(), &p)
	return p.ID
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(newMockDependencies())

		Convey("Health answers with a JSON status", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")
			So(decodeError(w)["status"], ShouldEqual, "ok")
		})

		Convey("Metrics are served in the Prometheus format", func() {
			do(mux, http.MethodGet, "/healthz", "")
			w := do(mux, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "# HELP")
		})

		Convey("Stats come from the provider", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decodeError(w)["started"], ShouldEqual, true)
		})

		Convey("Instruments list the catalogue and its default", func() {
			w := do(mux, http.MethodGet, "/instruments", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decodeError(w)
			So(body["default"], ShouldEqual, music.DefaultInstrument)
			So(body["instruments"], ShouldHaveLength, len(music.Instruments))
		})

		Convey("Unknown methods are rejected by the mux", func() {
			w := do(mux, http.MethodDelete, "/pieces", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestPieces(t *testing.T) {
	Convey("Given the piece endpoints", t, func() {
		mux := newMux(newMockDependencies())

		Convey("A valid piece is created", func() {
			w := do(mux, http.MethodPost, "/pieces", `{"title":"Etude","composer":"Czerny","sheet":`+sheetJSON+`}`)
			So(w.Code, ShouldEqual, http.StatusCreated)

			var p repository.Piece
			So(json.Unmarshal(w.Body.Bytes(), &p), ShouldBeNil)
			So(p.ID, ShouldNotBeEmpty)
			So(p.Title, ShouldEqual, "Etude")
			So(p.Sheet.Notes, ShouldHaveLength, 2)
			So(p.Sheet.Tempo, ShouldEqual, 120)

			Convey("And it can be read back and listed", func() {
				w := do(mux, http.MethodGet, "/pieces/"+p.ID, "")
				So(w.Code, ShouldEqual, http.StatusOK)

				w = do(mux, http.MethodGet, "/pieces", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var list struct {
					Pieces []repository.Piece `json:"pieces"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &list), ShouldBeNil)
				So(list.Pieces, ShouldHaveLength, 1)
			})
		})

		Convey("A missing title is a bad request", func() {
			w := do(mux, http.MethodPost, "/pieces", `{"sheet":`+sheetJSON+`}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w)["code"], ShouldEqual, "bad_request")
		})

		Convey("A missing sheet is a bad request", func() {
			w := do(mux, http.MethodPost, "/pieces", `{"title":"Etude"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Malformed JSON is a bad request", func() {
			w := do(mux, http.MethodPost, "/pieces", `{"title":`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("An empty body is a bad request", func() {
			w := do(mux, http.MethodPost, "/pieces", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Unknown sheet fields are rejected", func() {
			w := do(mux, http.MethodPost, "/pieces", `{"title":"Etude","sheet":{"notes":[],"tempo":120,"bogus":1}}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("An invalid note reports where it is", func() {
			sheet := `{"notes":[{"pitch":"C4","start_time":0,"duration":0.5},{"pitch":"H9","start_time":0.5,"duration":0.5}],"tempo":120}`
			w := do(mux, http.MethodPost, "/pieces", `{"title":"Etude","sheet":`+sheet+`}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			body := decodeError(w)
			So(body["sequence"], ShouldEqual, "expected")
			So(body["index"], ShouldEqual, float64(1))
			So(body["field"], ShouldEqual, "pitch")
		})

		Convey("An unknown piece is not found", func() {
			w := do(mux, http.MethodGet, "/pieces/missing", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeError(w)["code"], ShouldEqual, "not_found")
		})
	})
}

func TestEvaluations(t *testing.T) {
	Convey("Given a stored piece", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)
		pieceID := createPiece(mux)
		So(pieceID, ShouldNotBeEmpty)

		Convey("A performance is evaluated", func() {
			w := do(mux, http.MethodPost, "/pieces/"+pieceID+"/evaluations", `{"instrument":"clarinet","audio":`+audioJSON+`}`)
			So(w.Code, ShouldEqual, http.StatusCreated)

			var ev service.Evaluation
			So(json.Unmarshal(w.Body.Bytes(), &ev), ShouldBeNil)
			So(ev.SessionID, ShouldNotBeEmpty)
			So(ev.Feedback.OverallScore, ShouldEqual, 90)

			Convey("Then the audio reached the service completed", func() {
				So(deps.lastInstrument, ShouldEqual, "clarinet")
				So(deps.lastAudio.Notes, ShouldHaveLength, 2)
				So(deps.lastAudio.Notes[1].Pitch, ShouldEqual, music.Pitch("E4"))
				So(deps.lastAudio.Tempo, ShouldEqual, 120)
				So(deps.lastAudio.Rhythm.InterOnsetIntervals, ShouldResemble, []float64{0.5})
			})

			Convey("Then the session can be read back", func() {
				w := do(mux, http.MethodGet, "/sessions/"+ev.SessionID, "")
				So(w.Code, ShouldEqual, http.StatusOK)

				w = do(mux, http.MethodGet, "/pieces/"+pieceID+"/sessions", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var list struct {
					Sessions []repository.Session `json:"sessions"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &list), ShouldBeNil)
				So(list.Sessions, ShouldHaveLength, 1)
			})

			Convey("Then its progress is available", func() {
				w := do(mux, http.MethodGet, "/sessions/"+ev.SessionID+"/progress", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var delta progress.SessionDelta
				So(json.Unmarshal(w.Body.Bytes(), &delta), ShouldBeNil)
				So(delta.TotalAttempts, ShouldEqual, 1)
			})
		})

		Convey("Missing audio is a bad request", func() {
			w := do(mux, http.MethodPost, "/pieces/"+pieceID+"/evaluations", `{"instrument":"clarinet"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("An unknown piece is not found", func() {
			w := do(mux, http.MethodPost, "/pieces/missing/evaluations", `{"audio":`+audioJSON+`}`)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("An unknown instrument is a bad request", func() {
			deps.evaluateErr = fmt.Errorf("%w: %q", service.ErrUnknownInstrument, "kazoo")
			w := do(mux, http.MethodPost, "/pieces/"+pieceID+"/evaluations", `{"instrument":"kazoo","audio":`+audioJSON+`}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w)["message"], ShouldContainSubstring, "kazoo")
		})

		Convey("Invalid performed notes carry their position", func() {
			deps.evaluateErr = &music.ValidationError{Sequence: "performed", Index: 3, Field: "duration", Reason: "must be positive"}
			w := do(mux, http.MethodPost, "/pieces/"+pieceID+"/evaluations", `{"audio":`+audioJSON+`}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			body := decodeError(w)
			So(body["sequence"], ShouldEqual, "performed")
			So(body["index"], ShouldEqual, float64(3))
		})

		Convey("Unexpected failures are internal errors", func() {
			deps.evaluateErr = fmt.Errorf("disk on fire")
			w := do(mux, http.MethodPost, "/pieces/"+pieceID+"/evaluations", `{"audio":`+audioJSON+`}`)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(decodeError(w)["code"], ShouldEqual, "internal_error")
		})

		Convey("Unknown sessions are not found", func() {
			So(do(mux, http.MethodGet, "/sessions/missing", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/sessions/missing/progress", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/pieces/missing/sessions", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestJobs(t *testing.T) {
	Convey("Given a stored piece", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)
		pieceID := createPiece(mux)
		body := `{"instrument":"flute","audio":` + audioJSON + `}`

		Convey("A submission is accepted", func() {
			w := do(mux, http.MethodPost, "/pieces/"+pieceID+"/jobs", body)
			So(w.Code, ShouldEqual, http.StatusAccepted)

			var resp struct {
				Job       model.EvaluationJob `json:"job"`
				Duplicate bool                `json:"duplicate"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Duplicate, ShouldBeFalse)
			So(resp.Job.Status, ShouldEqual, model.JobQueued)

			Convey("And the job can be polled", func() {
				w := do(mux, http.MethodGet, "/jobs/"+resp.Job.ID, "")
				So(w.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("A repeated idempotency key returns the original job", func() {
			first := do(mux, http.MethodPost, "/pieces/"+pieceID+"/jobs", body, api.IdempotencyKeyHeader, "attempt-1")
			So(first.Code, ShouldEqual, http.StatusAccepted)
			second := do(mux, http.MethodPost, "/pieces/"+pieceID+"/jobs", body, api.IdempotencyKeyHeader, "attempt-1")
			So(second.Code, ShouldEqual, http.StatusOK)

			var a, b struct {
				Job       model.EvaluationJob `json:"job"`
				Duplicate bool                `json:"duplicate"`
			}
			So(json.Unmarshal(first.Body.Bytes(), &a), ShouldBeNil)
			So(json.Unmarshal(second.Body.Bytes(), &b), ShouldBeNil)
			So(b.Duplicate, ShouldBeTrue)
			So(b.Job.ID, ShouldEqual, a.Job.ID)
		})

		Convey("A full queue is backpressure", func() {
			deps.submitErr = fmt.Errorf("submit job: %w", eventqueue.ErrFull)
			w := do(mux, http.MethodPost, "/pieces/"+pieceID+"/jobs", body)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(decodeError(w)["code"], ShouldEqual, "backpressure")
		})

		Convey("A stopped service is unavailable", func() {
			deps.submitErr = service.ErrNotStarted
			w := do(mux, http.MethodPost, "/pieces/"+pieceID+"/jobs", body)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("Unknown jobs are not found", func() {
			So(do(mux, http.MethodGet, "/jobs/missing", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}
