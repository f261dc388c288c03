// ABOUTME: List-record stores for chapters (one ordered list per book) and
// ABOUTME: lessons (one ordered list per book+chapter), stamped per element

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// columnTime reads a single timestamp column. Absent rows or unparseable
// values report ok=false.
func (s *DB) columnTime(ctx context.Context, query string, args ...any) (time.Time, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&raw)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("querying timestamp: %w", err)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, nil
	}
	return t, true, nil
}

// recordMeta builds the row-level metadata for a list record: creation time
// survives from the existing row, update time is always now.
func (s *DB) recordMeta(ctx context.Context, now time.Time, query string, args ...any) (Meta, error) {
	m := Meta{CreatedAt: now, UpdatedAt: now}
	created, ok, err := s.columnTime(ctx, query, args...)
	if err != nil {
		return m, err
	}
	if ok {
		m.CreatedAt = created
	}
	return m, nil
}

// --- Chapters ---

// PutChapters replaces the ordered chapter list of a book. Each element
// keeps its original CreatedAt when an element with the same id already
// exists in the stored list; every element's UpdatedAt is refreshed.
func (s *DB) PutChapters(ctx context.Context, bookID string, chapters []Chapter) error {
	if bookID == "" {
		return ErrInvalidKey
	}
	now := time.Now().UTC()
	prior, err := s.GetChapters(ctx, bookID)
	if err != nil {
		return err
	}
	priorByID := make(map[string]Meta, len(prior))
	for _, c := range prior {
		priorByID[c.ID] = c.Meta
	}
	for i := range chapters {
		if pm, ok := priorByID[chapters[i].ID]; ok {
			stampMeta(&chapters[i].Meta, &pm, now)
		} else {
			stampMeta(&chapters[i].Meta, nil, now)
		}
	}
	return s.putChapterRow(ctx, bookID, chapters, now)
}

// PutChaptersRaw writes a chapter list preserving element timestamps.
func (s *DB) PutChaptersRaw(ctx context.Context, bookID string, chapters []Chapter) error {
	if bookID == "" {
		return ErrInvalidKey
	}
	now := time.Now().UTC()
	for i := range chapters {
		fillMeta(&chapters[i].Meta, now)
	}
	return s.putChapterRow(ctx, bookID, chapters, now)
}

func (s *DB) putChapterRow(ctx context.Context, bookID string, chapters []Chapter, now time.Time) error {
	m, err := s.recordMeta(ctx, now, `SELECT created_at FROM chapters WHERE book_id = ?`, bookID)
	if err != nil {
		return err
	}
	if chapters == nil {
		chapters = []Chapter{}
	}
	return s.writeEntity(ctx, MirrorWrite{Store: "chapters", Key: bookID}, &m, chapters,
		`INSERT OR REPLACE INTO chapters (book_id, data, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		bookID)
}

// GetChapters returns the book's chapter list, or nil when no record
// exists.
func (s *DB) GetChapters(ctx context.Context, bookID string) ([]Chapter, error) {
	if bookID == "" {
		return nil, nil
	}
	out, err := getEntity[[]Chapter](ctx, s, `SELECT data FROM chapters WHERE book_id = ?`, bookID)
	if err != nil || out == nil {
		return nil, err
	}
	return *out, nil
}

// ListAllChapterRecords returns every chapter list keyed by book id.
func (s *DB) ListAllChapterRecords(ctx context.Context) (map[string][]Chapter, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT book_id, data FROM chapters`)
	if err != nil {
		return nil, fmt.Errorf("querying chapter records: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]Chapter)
	for rows.Next() {
		var bookID string
		var data []byte
		if err := rows.Scan(&bookID, &data); err != nil {
			return nil, fmt.Errorf("scanning chapter record: %w", err)
		}
		var chapters []Chapter
		if err := decodeJSON(data, &chapters); err != nil {
			return nil, err
		}
		out[bookID] = chapters
	}
	return out, rows.Err()
}

func (s *DB) DeleteChapters(ctx context.Context, bookID string) error {
	if bookID == "" {
		return nil
	}
	return s.execDelete(ctx, MirrorWrite{Store: "chapters", Key: bookID},
		`DELETE FROM chapters WHERE book_id = ?`, bookID)
}

// --- Lessons ---

// PutLessons replaces the ordered lesson list of a chapter, stamping per
// element the same way PutChapters does.
func (s *DB) PutLessons(ctx context.Context, bookID, chapterID string, lessons []Lesson) error {
	if bookID == "" || chapterID == "" {
		return ErrInvalidKey
	}
	now := time.Now().UTC()
	prior, err := s.GetLessons(ctx, bookID, chapterID)
	if err != nil {
		return err
	}
	priorByID := make(map[string]Meta, len(prior))
	for _, l := range prior {
		priorByID[l.ID] = l.Meta
	}
	for i := range lessons {
		if pm, ok := priorByID[lessons[i].ID]; ok {
			stampMeta(&lessons[i].Meta, &pm, now)
		} else {
			stampMeta(&lessons[i].Meta, nil, now)
		}
	}
	return s.putLessonRow(ctx, bookID, chapterID, lessons, now)
}

// PutLessonsRaw writes a lesson list preserving element timestamps.
func (s *DB) PutLessonsRaw(ctx context.Context, bookID, chapterID string, lessons []Lesson) error {
	if bookID == "" || chapterID == "" {
		return ErrInvalidKey
	}
	now := time.Now().UTC()
	for i := range lessons {
		fillMeta(&lessons[i].Meta, now)
	}
	return s.putLessonRow(ctx, bookID, chapterID, lessons, now)
}

func (s *DB) putLessonRow(ctx context.Context, bookID, chapterID string, lessons []Lesson, now time.Time) error {
	m, err := s.recordMeta(ctx, now,
		`SELECT created_at FROM lessons WHERE book_id = ? AND chapter_id = ?`, bookID, chapterID)
	if err != nil {
		return err
	}
	if lessons == nil {
		lessons = []Lesson{}
	}
	return s.writeEntity(ctx, MirrorWrite{Store: "lessons", Key: mirrorKey(bookID, chapterID)}, &m, lessons,
		`INSERT OR REPLACE INTO lessons (book_id, chapter_id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		bookID, chapterID)
}

// GetLessons returns the chapter's lesson list, or nil when no record
// exists.
func (s *DB) GetLessons(ctx context.Context, bookID, chapterID string) ([]Lesson, error) {
	if bookID == "" || chapterID == "" {
		return nil, nil
	}
	out, err := getEntity[[]Lesson](ctx, s,
		`SELECT data FROM lessons WHERE book_id = ? AND chapter_id = ?`, bookID, chapterID)
	if err != nil || out == nil {
		return nil, err
	}
	return *out, nil
}

// ListLessonRecordsByBook returns the book's lesson lists keyed by chapter
// id.
func (s *DB) ListLessonRecordsByBook(ctx context.Context, bookID string) (map[string][]Lesson, error) {
	return s.lessonRecords(ctx,
		`SELECT chapter_id, data FROM lessons WHERE book_id = ?`, func(chapterID string) string {
			return chapterID
		}, bookID)
}

// ListAllLessonRecords returns every lesson list keyed by the joined
// "book_chapter" key.
func (s *DB) ListAllLessonRecords(ctx context.Context) (map[string][]Lesson, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT book_id, chapter_id, data FROM lessons`)
	if err != nil {
		return nil, fmt.Errorf("querying lesson records: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]Lesson)
	for rows.Next() {
		var bookID, chapterID string
		var data []byte
		if err := rows.Scan(&bookID, &chapterID, &data); err != nil {
			return nil, fmt.Errorf("scanning lesson record: %w", err)
		}
		var lessons []Lesson
		if err := decodeJSON(data, &lessons); err != nil {
			return nil, err
		}
		out[mirrorKey(bookID, chapterID)] = lessons
	}
	return out, rows.Err()
}

func (s *DB) lessonRecords(ctx context.Context, query string, keyFn func(string) string, args ...any) (map[string][]Lesson, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying lesson records: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]Lesson)
	for rows.Next() {
		var key string
		var data []byte
		if err := rows.Scan(&key, &data); err != nil {
			return nil, fmt.Errorf("scanning lesson record: %w", err)
		}
		var lessons []Lesson
		if err := decodeJSON(data, &lessons); err != nil {
			return nil, err
		}
		out[keyFn(key)] = lessons
	}
	return out, rows.Err()
}

func (s *DB) DeleteLessons(ctx context.Context, bookID, chapterID string) error {
	if bookID == "" || chapterID == "" {
		return nil
	}
	return s.execDelete(ctx, MirrorWrite{Store: "lessons", Key: mirrorKey(bookID, chapterID)},
		`DELETE FROM lessons WHERE book_id = ? AND chapter_id = ?`, bookID, chapterID)
}

// DeleteLessonsByBook removes every lesson record beneath a book.
func (s *DB) DeleteLessonsByBook(ctx context.Context, bookID string) error {
	if bookID == "" {
		return nil
	}
	return s.execDelete(ctx, MirrorWrite{Store: "lessons", Key: bookID},
		`DELETE FROM lessons WHERE book_id = ?`, bookID)
}
