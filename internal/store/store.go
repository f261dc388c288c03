// ABOUTME: Store interface, sentinel errors and warning channel for the content store
// ABOUTME: Implemented by the SQLite-backed DB and by the Degraded fallback

package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by the store.
var (
	// ErrUnavailable means the underlying engine cannot be used at all.
	// Reads against a Degraded store absorb it; writes return it.
	ErrUnavailable = errors.New("storage engine unavailable")

	// ErrMigrationFailed means a schema upgrade aborted and the one-shot
	// delete-and-recreate recovery also failed (or was disabled).
	ErrMigrationFailed = errors.New("schema migration failed")

	// ErrVersionConflict means the stored schema version is newer than the
	// version this build targets.
	ErrVersionConflict = errors.New("stored schema version is newer than target")

	// ErrInvalidKey means a required key component is empty.
	ErrInvalidKey = errors.New("invalid entity key")
)

// WarningKind classifies recoverable conditions surfaced on the warning
// channel instead of as errors.
type WarningKind string

const (
	// WarnBlocked: another open handle is holding the database.
	WarnBlocked WarningKind = "blocked"
	// WarnBlocking: the upgrade transaction could not proceed immediately.
	WarnBlocking WarningKind = "blocking"
	// WarnDatabaseReset: the self-healing path is about to delete and
	// recreate the database. Emitted before data loss occurs.
	WarnDatabaseReset WarningKind = "database_reset"
)

// Warning is a recoverable condition report.
type Warning struct {
	Kind WarningKind
	Err  error
}

// WarningFunc receives recoverable warnings during Open and migrations.
type WarningFunc func(Warning)

// DateRange is an inclusive [Start, End] window over entity creation times.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Store is the entity-store surface consumed by the cascade engine, the
// batch loader and the admin CLI.
//
// Get methods return (nil, nil) when the key is absent: absence is never an
// error. Delete methods are no-op successes for absent keys. Put methods
// stamp lifecycle metadata (fetch-before-write); the PutXRaw variants
// preserve caller-supplied metadata and are used by the import path.
type Store interface {
	// Levels
	PutLevel(ctx context.Context, l *Level) error
	GetLevel(ctx context.Context, id string) (*Level, error)
	ListLevels(ctx context.Context) ([]Level, error)
	DeleteLevel(ctx context.Context, id string) error

	// Series
	PutSeries(ctx context.Context, s *Series) error
	PutSeriesRaw(ctx context.Context, s *Series) error
	GetSeries(ctx context.Context, level, id string) (*Series, error)
	ListSeries(ctx context.Context, level string) ([]Series, error)
	ListAllSeries(ctx context.Context) ([]Series, error)
	DeleteSeries(ctx context.Context, level, id string) error

	// Books
	PutBook(ctx context.Context, b *Book) error
	PutBookRaw(ctx context.Context, b *Book) error
	GetBook(ctx context.Context, level, id string) (*Book, error)
	FindBook(ctx context.Context, id string) (*Book, error)
	ListBooks(ctx context.Context, level string) ([]Book, error)
	ListBooksByCategory(ctx context.Context, level, category string) ([]Book, error)
	ListAllBooks(ctx context.Context) ([]Book, error)
	DeleteBook(ctx context.Context, level, id string) error

	// Chapters (one ordered list per book)
	PutChapters(ctx context.Context, bookID string, chapters []Chapter) error
	PutChaptersRaw(ctx context.Context, bookID string, chapters []Chapter) error
	GetChapters(ctx context.Context, bookID string) ([]Chapter, error)
	ListAllChapterRecords(ctx context.Context) (map[string][]Chapter, error)
	DeleteChapters(ctx context.Context, bookID string) error

	// Lessons (one ordered list per book+chapter)
	PutLessons(ctx context.Context, bookID, chapterID string, lessons []Lesson) error
	PutLessonsRaw(ctx context.Context, bookID, chapterID string, lessons []Lesson) error
	GetLessons(ctx context.Context, bookID, chapterID string) ([]Lesson, error)
	ListLessonRecordsByBook(ctx context.Context, bookID string) (map[string][]Lesson, error)
	ListAllLessonRecords(ctx context.Context) (map[string][]Lesson, error)
	DeleteLessons(ctx context.Context, bookID, chapterID string) error
	DeleteLessonsByBook(ctx context.Context, bookID string) error

	// Quizzes
	PutQuiz(ctx context.Context, q *Quiz) error
	PutQuizRaw(ctx context.Context, q *Quiz) error
	GetQuiz(ctx context.Context, bookID, chapterID, lessonID string) (*Quiz, error)
	ListQuizzesByBook(ctx context.Context, bookID string) ([]Quiz, error)
	ListQuizzesByChapter(ctx context.Context, bookID, chapterID string) ([]Quiz, error)
	ListAllQuizzes(ctx context.Context) ([]Quiz, error)
	DeleteQuiz(ctx context.Context, bookID, chapterID, lessonID string) error
	DeleteQuizzesByChapter(ctx context.Context, bookID, chapterID string) error
	DeleteQuizzesByBook(ctx context.Context, bookID string) error

	// Exams
	PutExam(ctx context.Context, e *Exam) error
	PutExamRaw(ctx context.Context, e *Exam) error
	GetExam(ctx context.Context, level, id string) (*Exam, error)
	ListExams(ctx context.Context, level string) ([]Exam, error)
	ListExamsByYear(ctx context.Context, level string, year int) ([]Exam, error)
	ListAllExams(ctx context.Context) ([]Exam, error)
	DeleteExam(ctx context.Context, level, id string) error

	// Level configs
	PutLevelConfig(ctx context.Context, c *LevelConfig) error
	PutLevelConfigRaw(ctx context.Context, c *LevelConfig) error
	GetLevelConfig(ctx context.Context, level string) (*LevelConfig, error)
	ListAllLevelConfigs(ctx context.Context) ([]LevelConfig, error)
	DeleteLevelConfig(ctx context.Context, level string) error

	// Spaced-repetition progress
	PutCardProgress(ctx context.Context, p *CardProgress) error
	GetCardProgress(ctx context.Context, cardID, userID string) (*CardProgress, error)
	ListCardProgressByUser(ctx context.Context, userID string) ([]CardProgress, error)
	ListCardProgressByDeck(ctx context.Context, userID, deckID string) ([]CardProgress, error)
	DeleteCardProgress(ctx context.Context, cardID, userID string) error

	// Review history (append-only)
	AddReview(ctx context.Context, r *Review) error
	ListReviewsByCard(ctx context.Context, cardID, userID string) ([]Review, error)
	ListReviewsByUser(ctx context.Context, userID string, limit int) ([]Review, error)

	// Daily stats
	PutDailyStat(ctx context.Context, d *DailyStat) error
	GetDailyStat(ctx context.Context, userID, deckID, date string) (*DailyStat, error)
	ListDailyStats(ctx context.Context, userID, deckID string) ([]DailyStat, error)

	// Users
	PutUser(ctx context.Context, u *User) error
	PutUserRaw(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error

	// Info reports storage statistics. It never fails; an unavailable
	// engine yields zeroed stats.
	Info(ctx context.Context) StorageInfo

	// Close releases the underlying engine handle.
	Close() error
}

// stampMeta applies the lifecycle invariant: CreatedAt is taken from prior
// when one exists, otherwise set to now; UpdatedAt is always refreshed.
func stampMeta(m *Meta, prior *Meta, now time.Time) {
	if prior != nil && !prior.CreatedAt.IsZero() {
		m.CreatedAt = prior.CreatedAt
	} else {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}

// fillMeta backfills zero timestamps on records written through the raw
// puts, which otherwise preserve caller-supplied metadata as-is.
func fillMeta(m *Meta, now time.Time) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = now
	}
}
