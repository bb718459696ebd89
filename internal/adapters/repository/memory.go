package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps pieces and sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	pieces   map[string]Piece
	sessions map[string]Session
	// byPiece holds session ids in insertion order.
	byPiece map[string][]string
	seq     map[string]int
	next    int
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := newSettings(opts)
	return &MemoryStore{
		pieces:   make(map[string]Piece),
		sessions: make(map[string]Session),
		byPiece:  make(map[string][]string),
		seq:      make(map[string]int),
		now:      s.now,
	}
}

func (m *MemoryStore) CreatePiece(ctx context.Context, p Piece) (Piece, error) {
	defer observe("create_piece", time.Now())
	p, err := preparePiece(p, m.now())
	if err != nil {
		return Piece{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pieces[p.ID]; ok {
		return Piece{}, fmt.Errorf("%w: duplicate id %s", ErrInvalidPiece, p.ID)
	}
	m.pieces[p.ID] = p
	m.seq[p.ID] = m.bump()
	return p, nil
}

func (m *MemoryStore) GetPiece(ctx context.Context, id string) (Piece, error) {
	defer observe("get_piece", time.Now())
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.pieces[id]
	if !ok {
		return Piece{}, fmt.Errorf("%w: %s", ErrPieceNotFound, id)
	}
	p.SessionCount = len(m.byPiece[id])
	return p, nil
}

func (m *MemoryStore) ListPieces(ctx context.Context) ([]Piece, error) {
	defer observe("list_pieces", time.Now())
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Piece, 0, len(m.pieces))
	for _, p := range m.pieces {
		p.SessionCount = len(m.byPiece[p.ID])
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return m.newer(out[i].CreatedAt, m.seq[out[i].ID], out[j].CreatedAt, m.seq[out[j].ID])
	})
	return out, nil
}

func (m *MemoryStore) SaveSession(ctx context.Context, s Session) (string, error) {
	defer observe("save_session", time.Now())
	s = prepareSession(s, m.now())

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pieces[s.PieceID]; !ok {
		return "", fmt.Errorf("%w: %s", ErrPieceNotFound, s.PieceID)
	}
	if _, ok := m.sessions[s.ID]; ok {
		return "", fmt.Errorf("save session: duplicate id %s", s.ID)
	}
	m.sessions[s.ID] = s
	m.byPiece[s.PieceID] = append(m.byPiece[s.PieceID], s.ID)
	m.seq[s.ID] = m.bump()
	return s.ID, nil
}

func (m *MemoryStore) GetSession(ctx context.Context, id string) (Session, error) {
	defer observe("get_session", time.Now())
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

func (m *MemoryStore) ListSessions(ctx context.Context, pieceID string) ([]Session, error) {
	defer observe("list_sessions", time.Now())
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.pieces[pieceID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrPieceNotFound, pieceID)
	}
	return m.sortedSessions(pieceID, ""), nil
}

func (m *MemoryStore) PreviousSession(ctx context.Context, pieceID, excludingID string) (*Session, error) {
	defer observe("previous_session", time.Now())
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := m.sortedSessions(pieceID, excludingID)
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}

func (m *MemoryStore) CountSessions(ctx context.Context, pieceID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byPiece[pieceID]), nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }

// sortedSessions returns the piece's sessions newest first. Must be called
// with m.mu held.
func (m *MemoryStore) sortedSessions(pieceID, excludingID string) []Session {
	ids := m.byPiece[pieceID]
	out := make([]Session, 0, len(ids))
	for _, id := range ids {
		if id != excludingID {
			out = append(out, m.sessions[id])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return m.newer(out[i].CreatedAt, m.seq[out[i].ID], out[j].CreatedAt, m.seq[out[j].ID])
	})
	return out
}

// newer orders by time, then by insertion for equal times.
func (m *MemoryStore) newer(a time.Time, aSeq int, b time.Time, bSeq int) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aSeq > bSeq
}

func (m *MemoryStore) bump() int {
	m.next++
	return m.next
}
