package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/masterofmagic999/mugic/internal/domain/analysis"
	"github.com/masterofmagic999/mugic/internal/domain/feedback"
	"github.com/masterofmagic999/mugic/pkg/logger"
)

type pieceRecord struct {
	RowID     uint                        `gorm:"primaryKey"`
	ID        string                      `gorm:"uniqueIndex;size:64;not null"`
	Title     string                      `gorm:"not null"`
	Composer  string                      `gorm:"size:255"`
	Sheet     analysis.SheetMusicAnalysis `gorm:"serializer:json;type:text"`
	CreatedAt time.Time                   `gorm:"index"`
}

func (pieceRecord) TableName() string { return "pieces" }

type sessionRecord struct {
	RowID      uint                   `gorm:"primaryKey"`
	ID         string                 `gorm:"uniqueIndex;size:64;not null"`
	PieceID    string                 `gorm:"index;size:64;not null"`
	Instrument string                 `gorm:"size:64"`
	Score      int                    `gorm:"not null;default:0"`
	Audio      analysis.AudioAnalysis `gorm:"serializer:json;type:text"`
	Feedback   feedback.Feedback      `gorm:"serializer:json;type:text"`
	CreatedAt  time.Time              `gorm:"index"`
}

func (sessionRecord) TableName() string { return "sessions" }

const newestFirst = "created_at DESC, row_id DESC"

// GormStore persists pieces and sessions through gorm.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// OpenGorm connects to a SQLite or Postgres database and migrates its schema.
func OpenGorm(ctx context.Context, driver, dsn string, opts ...Option) (*GormStore, error) {
	s := newSettings(opts)
	driver = strings.ToLower(driver)

	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		if dsn == "" {
			dsn = "mugic.db"
		}
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("open %s: empty dsn", driver)
		}
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}

	cfg := &gorm.Config{Logger: gormlogger.Discard}
	if s.logger != nil {
		cfg.Logger = gormlogger.New(gormWriter{s.logger}, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if s.maxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(s.maxOpenConns)
	}
	// An in-memory SQLite database lives only as long as its connection.
	if driver == DriverSQLite && strings.Contains(dsn, ":memory:") {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.WithContext(ctx).AutoMigrate(&pieceRecord{}, &sessionRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &GormStore{db: db, now: s.now}, nil
}

func (g *GormStore) CreatePiece(ctx context.Context, p Piece) (Piece, error) {
	defer observe("create_piece", time.Now())
	p, err := preparePiece(p, g.now())
	if err != nil {
		return Piece{}, err
	}

	rec := pieceRecord{
		ID:        p.ID,
		Title:     p.Title,
		Composer:  p.Composer,
		Sheet:     p.Sheet,
		CreatedAt: p.CreatedAt,
	}
	if err := g.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return Piece{}, fmt.Errorf("create piece: %w", err)
	}
	return p, nil
}

func (g *GormStore) GetPiece(ctx context.Context, id string) (Piece, error) {
	defer observe("get_piece", time.Now())
	var rec pieceRecord
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Piece{}, fmt.Errorf("%w: %s", ErrPieceNotFound, id)
	}
	if err != nil {
		return Piece{}, fmt.Errorf("get piece: %w", err)
	}

	var count int64
	if err := g.db.WithContext(ctx).Model(&sessionRecord{}).Where("piece_id = ?", id).Count(&count).Error; err != nil {
		return Piece{}, fmt.Errorf("get piece: %w", err)
	}
	p := rec.piece()
	p.SessionCount = int(count)
	return p, nil
}

func (g *GormStore) ListPieces(ctx context.Context) ([]Piece, error) {
	defer observe("list_pieces", time.Now())
	var recs []pieceRecord
	if err := g.db.WithContext(ctx).Order(newestFirst).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list pieces: %w", err)
	}

	type row struct {
		PieceID string
		N       int
	}
	var counts []row
	err := g.db.WithContext(ctx).Model(&sessionRecord{}).
		Select("piece_id, count(*) as n").
		Group("piece_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("list pieces: %w", err)
	}
	byPiece := make(map[string]int, len(counts))
	for _, c := range counts {
		byPiece[c.PieceID] = c.N
	}

	out := make([]Piece, len(recs))
	for i, r := range recs {
		out[i] = r.piece()
		out[i].SessionCount = byPiece[r.ID]
	}
	return out, nil
}

func (g *GormStore) SaveSession(ctx context.Context, s Session) (string, error) {
	defer observe("save_session", time.Now())
	s = prepareSession(s, g.now())

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&pieceRecord{}).Where("id = ?", s.PieceID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrPieceNotFound, s.PieceID)
		}
		rec := sessionRecord{
			ID:         s.ID,
			PieceID:    s.PieceID,
			Instrument: s.Instrument,
			Score:      s.Score,
			Audio:      s.Audio,
			Feedback:   s.Feedback,
			CreatedAt:  s.CreatedAt,
		}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return s.ID, nil
}

func (g *GormStore) GetSession(ctx context.Context, id string) (Session, error) {
	defer observe("get_session", time.Now())
	var rec sessionRecord
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	return rec.session(), nil
}

func (g *GormStore) ListSessions(ctx context.Context, pieceID string) ([]Session, error) {
	defer observe("list_sessions", time.Now())
	var n int64
	if err := g.db.WithContext(ctx).Model(&pieceRecord{}).Where("id = ?", pieceID).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrPieceNotFound, pieceID)
	}

	var recs []sessionRecord
	if err := g.db.WithContext(ctx).Where("piece_id = ?", pieceID).Order(newestFirst).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]Session, len(recs))
	for i, r := range recs {
		out[i] = r.session()
	}
	return out, nil
}

func (g *GormStore) PreviousSession(ctx context.Context, pieceID, excludingID string) (*Session, error) {
	defer observe("previous_session", time.Now())
	var recs []sessionRecord
	err := g.db.WithContext(ctx).
		Where("piece_id = ? AND id <> ?", pieceID, excludingID).
		Order(newestFirst).
		Limit(1).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("previous session: %w", err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	s := recs[0].session()
	return &s, nil
}

func (g *GormStore) CountSessions(ctx context.Context, pieceID string) (int, error) {
	var n int64
	if err := g.db.WithContext(ctx).Model(&sessionRecord{}).Where("piece_id = ?", pieceID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return int(n), nil
}

// Close closes the underlying connection pool.
func (g *GormStore) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r pieceRecord) piece() Piece {
	return Piece{
		ID:        r.ID,
		Title:     r.Title,
		Composer:  r.Composer,
		Sheet:     r.Sheet,
		CreatedAt: r.CreatedAt,
	}
}

func (r sessionRecord) session() Session {
	return Session{
		ID:         r.ID,
		PieceID:    r.PieceID,
		Instrument: r.Instrument,
		Score:      r.Score,
		Audio:      r.Audio,
		Feedback:   r.Feedback,
		CreatedAt:  r.CreatedAt,
	}
}

// gormWriter routes gorm's log output through the service logger.
type gormWriter struct {
	l logger.Logger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.l.Warn(context.Background(), strings.TrimSpace(fmt.Sprintf(format, args...)))
}
