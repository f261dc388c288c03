// ABOUTME: Entity store operations for the catalog hierarchy: levels, series,
// ABOUTME: books and per-level configuration records

package store

import (
	"context"
	"sort"
	"time"
)

// --- Levels ---

func (s *DB) PutLevel(ctx context.Context, l *Level) error {
	if l == nil || l.ID == "" {
		return ErrInvalidKey
	}
	prior, err := s.priorMeta(ctx, `SELECT data FROM levels WHERE id = ?`, l.ID)
	if err != nil {
		return err
	}
	stampMeta(&l.Meta, prior, time.Now().UTC())
	return s.writeEntity(ctx, MirrorWrite{Store: "levels", Key: l.ID}, &l.Meta, l,
		`INSERT OR REPLACE INTO levels (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		l.ID)
}

func (s *DB) GetLevel(ctx context.Context, id string) (*Level, error) {
	if id == "" {
		return nil, nil
	}
	return getEntity[Level](ctx, s, `SELECT data FROM levels WHERE id = ?`, id)
}

func (s *DB) ListLevels(ctx context.Context) ([]Level, error) {
	out, err := listEntities[Level](ctx, s, `SELECT data FROM levels`)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *DB) DeleteLevel(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.execDelete(ctx, MirrorWrite{Store: "levels", Key: id},
		`DELETE FROM levels WHERE id = ?`, id)
}

// --- Series ---

func (s *DB) PutSeries(ctx context.Context, v *Series) error {
	if v == nil || v.Level == "" || v.ID == "" {
		return ErrInvalidKey
	}
	prior, err := s.priorMeta(ctx, `SELECT data FROM series WHERE level = ? AND id = ?`, v.Level, v.ID)
	if err != nil {
		return err
	}
	stampMeta(&v.Meta, prior, time.Now().UTC())
	return s.putSeriesRow(ctx, v)
}

// PutSeriesRaw writes a series preserving its caller-supplied timestamps.
func (s *DB) PutSeriesRaw(ctx context.Context, v *Series) error {
	if v == nil || v.Level == "" || v.ID == "" {
		return ErrInvalidKey
	}
	fillMeta(&v.Meta, time.Now().UTC())
	return s.putSeriesRow(ctx, v)
}

func (s *DB) putSeriesRow(ctx context.Context, v *Series) error {
	return s.writeEntity(ctx, MirrorWrite{Store: "series", Key: mirrorKey(v.Level, v.ID)}, &v.Meta, v,
		`INSERT OR REPLACE INTO series (level, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		v.Level, v.ID)
}

func (s *DB) GetSeries(ctx context.Context, level, id string) (*Series, error) {
	if level == "" || id == "" {
		return nil, nil
	}
	return getEntity[Series](ctx, s, `SELECT data FROM series WHERE level = ? AND id = ?`, level, id)
}

func (s *DB) ListSeries(ctx context.Context, level string) ([]Series, error) {
	out, err := listEntities[Series](ctx, s, `SELECT data FROM series WHERE level = ?`, level)
	if err != nil {
		return nil, err
	}
	sortSeries(out)
	return out, nil
}

func (s *DB) ListAllSeries(ctx context.Context) ([]Series, error) {
	out, err := listEntities[Series](ctx, s, `SELECT data FROM series ORDER BY level`)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DB) DeleteSeries(ctx context.Context, level, id string) error {
	if level == "" || id == "" {
		return nil
	}
	return s.execDelete(ctx, MirrorWrite{Store: "series", Key: mirrorKey(level, id)},
		`DELETE FROM series WHERE level = ? AND id = ?`, level, id)
}

func sortSeries(out []Series) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].Name < out[j].Name
	})
}

// --- Books ---

func (s *DB) PutBook(ctx context.Context, b *Book) error {
	if b == nil || b.Level == "" || b.ID == "" {
		return ErrInvalidKey
	}
	prior, err := s.priorMeta(ctx, `SELECT data FROM books WHERE level = ? AND id = ?`, b.Level, b.ID)
	if err != nil {
		return err
	}
	stampMeta(&b.Meta, prior, time.Now().UTC())
	return s.putBookRow(ctx, b)
}

// PutBookRaw writes a book preserving its caller-supplied timestamps.
func (s *DB) PutBookRaw(ctx context.Context, b *Book) error {
	if b == nil || b.Level == "" || b.ID == "" {
		return ErrInvalidKey
	}
	fillMeta(&b.Meta, time.Now().UTC())
	return s.putBookRow(ctx, b)
}

func (s *DB) putBookRow(ctx context.Context, b *Book) error {
	return s.writeEntity(ctx, MirrorWrite{Store: "books", Key: mirrorKey(b.Level, b.ID)}, &b.Meta, b,
		`INSERT OR REPLACE INTO books (level, id, category, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		b.Level, b.ID, b.Category)
}

func (s *DB) GetBook(ctx context.Context, level, id string) (*Book, error) {
	if level == "" || id == "" {
		return nil, nil
	}
	return getEntity[Book](ctx, s, `SELECT data FROM books WHERE level = ? AND id = ?`, level, id)
}

// FindBook locates a book by id alone, scanning across levels. Book ids
// are unique in practice; if duplicates exist the first match wins.
func (s *DB) FindBook(ctx context.Context, id string) (*Book, error) {
	if id == "" {
		return nil, nil
	}
	return getEntity[Book](ctx, s, `SELECT data FROM books WHERE id = ? ORDER BY level LIMIT 1`, id)
}

func (s *DB) ListBooks(ctx context.Context, level string) ([]Book, error) {
	out, err := listEntities[Book](ctx, s, `SELECT data FROM books WHERE level = ?`, level)
	if err != nil {
		return nil, err
	}
	sortBooks(out)
	return out, nil
}

func (s *DB) ListBooksByCategory(ctx context.Context, level, category string) ([]Book, error) {
	out, err := listEntities[Book](ctx, s,
		`SELECT data FROM books WHERE level = ? AND category = ?`, level, category)
	if err != nil {
		return nil, err
	}
	sortBooks(out)
	return out, nil
}

func (s *DB) ListAllBooks(ctx context.Context) ([]Book, error) {
	return listEntities[Book](ctx, s, `SELECT data FROM books ORDER BY level, id`)
}

func (s *DB) DeleteBook(ctx context.Context, level, id string) error {
	if level == "" || id == "" {
		return nil
	}
	return s.execDelete(ctx, MirrorWrite{Store: "books", Key: mirrorKey(level, id)},
		`DELETE FROM books WHERE level = ? AND id = ?`, level, id)
}

func sortBooks(out []Book) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].Title < out[j].Title
	})
}

// --- Level configs ---

func (s *DB) PutLevelConfig(ctx context.Context, c *LevelConfig) error {
	if c == nil || c.Level == "" {
		return ErrInvalidKey
	}
	prior, err := s.priorMeta(ctx, `SELECT data FROM level_configs WHERE level = ?`, c.Level)
	if err != nil {
		return err
	}
	stampMeta(&c.Meta, prior, time.Now().UTC())
	return s.putLevelConfigRow(ctx, c)
}

// PutLevelConfigRaw writes a level config preserving its timestamps.
func (s *DB) PutLevelConfigRaw(ctx context.Context, c *LevelConfig) error {
	if c == nil || c.Level == "" {
		return ErrInvalidKey
	}
	fillMeta(&c.Meta, time.Now().UTC())
	return s.putLevelConfigRow(ctx, c)
}

func (s *DB) putLevelConfigRow(ctx context.Context, c *LevelConfig) error {
	return s.writeEntity(ctx, MirrorWrite{Store: "level_configs", Key: c.Level}, &c.Meta, c,
		`INSERT OR REPLACE INTO level_configs (level, data, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		c.Level)
}

func (s *DB) GetLevelConfig(ctx context.Context, level string) (*LevelConfig, error) {
	if level == "" {
		return nil, nil
	}
	return getEntity[LevelConfig](ctx, s, `SELECT data FROM level_configs WHERE level = ?`, level)
}

func (s *DB) ListAllLevelConfigs(ctx context.Context) ([]LevelConfig, error) {
	return listEntities[LevelConfig](ctx, s, `SELECT data FROM level_configs ORDER BY level`)
}

func (s *DB) DeleteLevelConfig(ctx context.Context, level string) error {
	if level == "" {
		return nil
	}
	return s.execDelete(ctx, MirrorWrite{Store: "level_configs", Key: level},
		`DELETE FROM level_configs WHERE level = ?`, level)
}
