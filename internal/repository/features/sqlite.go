package features

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jaennil/guide_helper/backend/tilerender/pkg/logger"
	_ "github.com/mattn/go-sqlite3"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

type SQLiteSource struct {
	db     *sql.DB
	logger logger.Logger
}

func NewSQLiteSource(path string, l logger.Logger) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteSource{
		db:     db,
		logger: l,
	}

	err = s.runMigrations()
	if err != nil {
		db.Close()
		return nil, err
	}

	l.Info("sqlite feature source initialized", "path", path)

	return s, nil
}

func (s *SQLiteSource) runMigrations() error {
	goose.SetBaseFS(migrations)

	err := goose.SetDialect("sqlite3")
	if err != nil {
		return err
	}

	err = goose.Up(s.db, "migrations")
	if err != nil {
		return err
	}

	return nil
}

var _ Store = (*SQLiteSource)(nil)

func (s *SQLiteSource) Fetch(ctx context.Context, t maptile.Tile) (fc *geojson.FeatureCollection, err error) {
	defer func(start time.Time) { observe("sqlite", "fetch", start, err) }(time.Now())

	s.logger.Debug("sqlite feature fetch", "z", t.Z, "x", t.X, "y", t.Y)

	query := `SELECT data
	FROM tile_features
	WHERE z = ? AND x = ? AND y = ?`

	var data []byte
	err = s.db.QueryRowContext(ctx, query, t.Z, t.X, t.Y).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDataUnavailable
		}
		s.logger.Error("sqlite feature fetch failed", "z", t.Z, "x", t.X, "y", t.Y, "error", err)
		return nil, err
	}

	fc, err = geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode features %d/%d/%d: %w", t.Z, t.X, t.Y, err)
	}
	return fc, nil
}

func (s *SQLiteSource) Put(ctx context.Context, t maptile.Tile, fc *geojson.FeatureCollection) (err error) {
	defer func(start time.Time) { observe("sqlite", "put", start, err) }(time.Now())

	s.logger.Debug("sqlite feature put", "z", t.Z, "x", t.X, "y", t.Y, "features", len(fc.Features))

	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode features %d/%d/%d: %w", t.Z, t.X, t.Y, err)
	}

	query := `INSERT INTO tile_features (z, x, y, data)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(z, x, y) DO UPDATE SET data = excluded.data`

	_, err = s.db.ExecContext(ctx, query, t.Z, t.X, t.Y, data)
	if err != nil {
		s.logger.Error("sqlite feature put failed", "z", t.Z, "x", t.X, "y", t.Y, "error", err)
		return err
	}

	return nil
}

func (s *SQLiteSource) Close() error {
	return s.db.Close()
}
