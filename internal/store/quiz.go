// ABOUTME: Entity store operations for lesson quizzes and level-scoped exams
// ABOUTME: Quizzes key on (book, chapter, lesson); exams key on (level, id)

package store

import (
	"context"
	"sort"
	"time"
)

// --- Quizzes ---

func (s *DB) PutQuiz(ctx context.Context, q *Quiz) error {
	if q == nil || q.BookID == "" || q.ChapterID == "" || q.LessonID == "" {
		return ErrInvalidKey
	}
	prior, err := s.priorMeta(ctx,
		`SELECT data FROM quizzes WHERE book_id = ? AND chapter_id = ? AND lesson_id = ?`,
		q.BookID, q.ChapterID, q.LessonID)
	if err != nil {
		return err
	}
	stampMeta(&q.Meta, prior, time.Now().UTC())
	return s.putQuizRow(ctx, q)
}

// PutQuizRaw writes a quiz preserving its caller-supplied timestamps.
func (s *DB) PutQuizRaw(ctx context.Context, q *Quiz) error {
	if q == nil || q.BookID == "" || q.ChapterID == "" || q.LessonID == "" {
		return ErrInvalidKey
	}
	fillMeta(&q.Meta, time.Now().UTC())
	return s.putQuizRow(ctx, q)
}

func (s *DB) putQuizRow(ctx context.Context, q *Quiz) error {
	return s.writeEntity(ctx,
		MirrorWrite{Store: "quizzes", Key: mirrorKey(q.BookID, q.ChapterID, q.LessonID)}, &q.Meta, q,
		`INSERT OR REPLACE INTO quizzes (book_id, chapter_id, lesson_id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		q.BookID, q.ChapterID, q.LessonID)
}

func (s *DB) GetQuiz(ctx context.Context, bookID, chapterID, lessonID string) (*Quiz, error) {
	if bookID == "" || chapterID == "" || lessonID == "" {
		return nil, nil
	}
	return getEntity[Quiz](ctx, s,
		`SELECT data FROM quizzes WHERE book_id = ? AND chapter_id = ? AND lesson_id = ?`,
		bookID, chapterID, lessonID)
}

func (s *DB) ListQuizzesByBook(ctx context.Context, bookID string) ([]Quiz, error) {
	return listEntities[Quiz](ctx, s,
		`SELECT data FROM quizzes WHERE book_id = ? ORDER BY chapter_id, lesson_id`, bookID)
}

func (s *DB) ListQuizzesByChapter(ctx context.Context, bookID, chapterID string) ([]Quiz, error) {
	return listEntities[Quiz](ctx, s,
		`SELECT data FROM quizzes WHERE book_id = ? AND chapter_id = ? ORDER BY lesson_id`,
		bookID, chapterID)
}

func (s *DB) ListAllQuizzes(ctx context.Context) ([]Quiz, error) {
	return listEntities[Quiz](ctx, s,
		`SELECT data FROM quizzes ORDER BY book_id, chapter_id, lesson_id`)
}

func (s *DB) DeleteQuiz(ctx context.Context, bookID, chapterID, lessonID string) error {
	if bookID == "" || chapterID == "" || lessonID == "" {
		return nil
	}
	return s.execDelete(ctx,
		MirrorWrite{Store: "quizzes", Key: mirrorKey(bookID, chapterID, lessonID)},
		`DELETE FROM quizzes WHERE book_id = ? AND chapter_id = ? AND lesson_id = ?`,
		bookID, chapterID, lessonID)
}

// DeleteQuizzesByChapter removes every quiz beneath a chapter.
func (s *DB) DeleteQuizzesByChapter(ctx context.Context, bookID, chapterID string) error {
	if bookID == "" || chapterID == "" {
		return nil
	}
	return s.execDelete(ctx,
		MirrorWrite{Store: "quizzes", Key: mirrorKey(bookID, chapterID)},
		`DELETE FROM quizzes WHERE book_id = ? AND chapter_id = ?`, bookID, chapterID)
}

// DeleteQuizzesByBook removes every quiz beneath a book.
func (s *DB) DeleteQuizzesByBook(ctx context.Context, bookID string) error {
	if bookID == "" {
		return nil
	}
	return s.execDelete(ctx, MirrorWrite{Store: "quizzes", Key: bookID},
		`DELETE FROM quizzes WHERE book_id = ?`, bookID)
}

// --- Exams ---

func (s *DB) PutExam(ctx context.Context, e *Exam) error {
	if e == nil || e.Level == "" || e.ID == "" {
		return ErrInvalidKey
	}
	prior, err := s.priorMeta(ctx, `SELECT data FROM exams WHERE level = ? AND id = ?`, e.Level, e.ID)
	if err != nil {
		return err
	}
	stampMeta(&e.Meta, prior, time.Now().UTC())
	return s.putExamRow(ctx, e)
}

// PutExamRaw writes an exam preserving its caller-supplied timestamps.
func (s *DB) PutExamRaw(ctx context.Context, e *Exam) error {
	if e == nil || e.Level == "" || e.ID == "" {
		return ErrInvalidKey
	}
	fillMeta(&e.Meta, time.Now().UTC())
	return s.putExamRow(ctx, e)
}

func (s *DB) putExamRow(ctx context.Context, e *Exam) error {
	return s.writeEntity(ctx, MirrorWrite{Store: "exams", Key: mirrorKey(e.Level, e.ID)}, &e.Meta, e,
		`INSERT OR REPLACE INTO exams (level, id, year, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.Level, e.ID, e.Year)
}

func (s *DB) GetExam(ctx context.Context, level, id string) (*Exam, error) {
	if level == "" || id == "" {
		return nil, nil
	}
	return getEntity[Exam](ctx, s, `SELECT data FROM exams WHERE level = ? AND id = ?`, level, id)
}

func (s *DB) ListExams(ctx context.Context, level string) ([]Exam, error) {
	out, err := listEntities[Exam](ctx, s,
		`SELECT data FROM exams WHERE level = ? ORDER BY year DESC, id`, level)
	if err != nil {
		return nil, err
	}
	sortExams(out)
	return out, nil
}

func (s *DB) ListExamsByYear(ctx context.Context, level string, year int) ([]Exam, error) {
	out, err := listEntities[Exam](ctx, s,
		`SELECT data FROM exams WHERE level = ? AND year = ?`, level, year)
	if err != nil {
		return nil, err
	}
	sortExams(out)
	return out, nil
}

func (s *DB) ListAllExams(ctx context.Context) ([]Exam, error) {
	return listEntities[Exam](ctx, s, `SELECT data FROM exams ORDER BY level, year DESC, id`)
}

func (s *DB) DeleteExam(ctx context.Context, level, id string) error {
	if level == "" || id == "" {
		return nil
	}
	return s.execDelete(ctx, MirrorWrite{Store: "exams", Key: mirrorKey(level, id)},
		`DELETE FROM exams WHERE level = ? AND id = ?`, level, id)
}

// Newest sitting first, date breaking ties within a year.
func sortExams(out []Exam) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID < out[j].ID
	})
}
