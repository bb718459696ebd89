package practicesim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/masterofmagic999/mugic/internal/adapters/http/api"
	"github.com/masterofmagic999/mugic/internal/adapters/repository"
	"github.com/masterofmagic999/mugic/internal/domain/analysis"
	"github.com/masterofmagic999/mugic/internal/domain/model"
	"github.com/masterofmagic999/mugic/internal/domain/progress"
)

// ErrStatus is returned for unexpected HTTP statuses.
var ErrStatus = errors.New("unexpected status")

// StatusError carries the status code of a rejected request. It matches
// ErrStatus under errors.Is.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, e.Body)
}

// Is reports whether target is ErrStatus.
func (e *StatusError) Is(target error) bool { return target == ErrStatus }

type pieceBody struct {
	Title    string                      `json:"title"`
	Composer string                      `json:"composer,omitempty"`
	Sheet    analysis.SheetMusicAnalysis `json:"sheet"`
}

type performanceBody struct {
	Instrument string                 `json:"instrument,omitempty"`
	Audio      analysis.AudioAnalysis `json:"audio"`
}

type submitResponse struct {
	Job       model.EvaluationJob `json:"job"`
	Duplicate bool                `json:"duplicate"`
}

// Client talks to the evaluation HTTP API.
type Client struct {
	base   string
	client *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{base: baseURL, client: &http.Client{Timeout: timeout}}
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, nil, http.StatusOK)
}

// CreatePiece stores a reference piece.
func (c *Client) CreatePiece(ctx context.Context, title string, sheet analysis.SheetMusicAnalysis) (repository.Piece, error) {
	var p repository.Piece
	err := c.do(ctx, http.MethodPost, "/pieces", pieceBody{Title: title, Composer: "practicesim", Sheet: sheet}, nil, &p, http.StatusCreated)
	return p, err
}

// SubmitJob queues an attempt and reports whether the service treated it as
// a duplicate.
func (c *Client) SubmitJob(ctx context.Context, pieceID, key string, body performanceBody) (model.EvaluationJob, bool, error) {
	var resp submitResponse
	headers := map[string]string{}
	if key != "" {
		headers[api.IdempotencyKeyHeader] = key
	}
	err := c.do(ctx, http.MethodPost, "/pieces/"+pieceID+"/jobs", body, headers, &resp, http.StatusAccepted, http.StatusOK)
	return resp.Job, resp.Duplicate, err
}

// GetJob polls a job.
func (c *Client) GetJob(ctx context.Context, id string) (model.EvaluationJob, error) {
	var j model.EvaluationJob
	err := c.do(ctx, http.MethodGet, "/jobs/"+id, nil, nil, &j, http.StatusOK)
	return j, err
}

// GetSession reads a stored session.
func (c *Client) GetSession(ctx context.Context, id string) (repository.Session, error) {
	var s repository.Session
	err := c.do(ctx, http.MethodGet, "/sessions/"+id, nil, nil, &s, http.StatusOK)
	return s, err
}

// ListSessions lists the sessions of a piece.
func (c *Client) ListSessions(ctx context.Context, pieceID string) ([]repository.Session, error) {
	var resp struct {
		Sessions []repository.Session `json:"sessions"`
	}
	err := c.do(ctx, http.MethodGet, "/pieces/"+pieceID+"/sessions", nil, nil, &resp, http.StatusOK)
	return resp.Sessions, err
}

// Progress compares a session with its predecessor.
func (c *Client) Progress(ctx context.Context, sessionID string) (progress.SessionDelta, error) {
	var d progress.SessionDelta
	err := c.do(ctx, http.MethodGet, "/sessions/"+sessionID+"/progress", nil, nil, &d, http.StatusOK)
	return d, err
}

func (c *Client) do(ctx context.Context, method, path string, body any, headers map[string]string, out any, want ...int) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	ok := false
	for _, code := range want {
		if resp.StatusCode == code {
			ok = true
			break
		}
	}
	if !ok {
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}
