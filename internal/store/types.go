// ABOUTME: Entity types for the Glingo content catalog and learner progress records
// ABOUTME: Every entity embeds Meta; JSON tags define the transfer document field names

package store

import "time"

// Meta carries the lifecycle timestamps stamped on every entity.
// CreatedAt is set once on first write and never changes; UpdatedAt is
// refreshed on every write.
type Meta struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Level is one proficiency tier at the top of the catalog hierarchy
// (n5 up to n1).
type Level struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
	Meta
}

// SeriesStatus values for the Series lifecycle.
const (
	SeriesStatusDraft     = "draft"
	SeriesStatusPublished = "published"
	SeriesStatusArchived  = "archived"
)

// Series is a named grouping of books within a level. Books reference a
// series by name through their Category field, not by ID.
type Series struct {
	ID       string `json:"id"`
	Level    string `json:"level"`
	Name     string `json:"name"`
	Status   string `json:"status,omitempty"`
	Position int    `json:"position,omitempty"`
	Meta
}

// Book belongs to a level. Category links it to a Series by name equality;
// the link is never validated at write time.
type Book struct {
	ID       string `json:"id"`
	Level    string `json:"level"`
	Title    string `json:"title"`
	Category string `json:"category,omitempty"`
	CoverURL string `json:"coverUrl,omitempty"`
	Position int    `json:"position,omitempty"`
	Meta
}

// Chapter is one element of a book's ordered chapter list. The whole list
// is stored as a single record keyed by book ID.
type Chapter struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Position int    `json:"position,omitempty"`
	Meta
}

// Lesson is one element of a chapter's ordered lesson list. The whole list
// is stored as a single record keyed by (book, chapter).
type Lesson struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content,omitempty"` // markdown body
	Position int    `json:"position,omitempty"`
	Meta
}

// QuizQuestion is a single multiple-choice question inside a quiz or exam
// section.
type QuizQuestion struct {
	ID          string   `json:"id"`
	Prompt      string   `json:"prompt"`
	Choices     []string `json:"choices"`
	Answer      int      `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
}

// Quiz is the single quiz attached to a lesson, keyed by
// (book, chapter, lesson).
type Quiz struct {
	BookID    string         `json:"bookId"`
	ChapterID string         `json:"chapterId"`
	LessonID  string         `json:"lessonId"`
	Title     string         `json:"title,omitempty"`
	Questions []QuizQuestion `json:"questions,omitempty"`
	Meta
}

// ExamSection is a named section of an exam (e.g. vocabulary, grammar,
// reading, listening) with its questions.
type ExamSection struct {
	Name      string         `json:"name"`
	Questions []QuizQuestion `json:"questions,omitempty"`
}

// Exam is a past exam paper scoped to a level, independent of the book
// hierarchy. Date is the sitting date in YYYY-MM-DD form; Year duplicates
// the year for grouped lookups.
type Exam struct {
	ID       string        `json:"id"`
	Level    string        `json:"level"`
	Title    string        `json:"title,omitempty"`
	Year     int           `json:"year,omitempty"`
	Date     string        `json:"date,omitempty"`
	Sections []ExamSection `json:"sections,omitempty"`
	Meta
}

// LevelConfig is the per-level singleton configuration record.
type LevelConfig struct {
	Level       string   `json:"level"`
	DisplayName string   `json:"displayName,omitempty"`
	PassScore   int      `json:"passScore,omitempty"`
	Decks       []string `json:"decks,omitempty"`
	Meta
}

// CardProgress is the spaced-repetition state for one card and one user.
type CardProgress struct {
	CardID   string    `json:"cardId"`
	UserID   string    `json:"userId"`
	DeckID   string    `json:"deckId,omitempty"`
	Interval int       `json:"interval,omitempty"` // days
	Ease     float64   `json:"ease,omitempty"`
	Due      time.Time `json:"due"`
	Reps     int       `json:"reps,omitempty"`
	Lapses   int       `json:"lapses,omitempty"`
	Meta
}

// Review is one append-only entry in the review history of a card.
type Review struct {
	ID         string    `json:"id"`
	CardID     string    `json:"cardId"`
	UserID     string    `json:"userId"`
	Rating     int       `json:"rating"` // 1 (again) .. 4 (easy)
	IntervalAt int       `json:"intervalAt,omitempty"`
	ReviewedAt time.Time `json:"reviewedAt"`
	Meta
}

// DailyStat is the aggregated study rollup for one user, deck and day.
// Date is in YYYY-MM-DD form.
type DailyStat struct {
	UserID      string `json:"userId"`
	DeckID      string `json:"deckId"`
	Date        string `json:"date"`
	NewCards    int    `json:"newCards,omitempty"`
	Reviewed    int    `json:"reviewed,omitempty"`
	TimeSpentMS int64  `json:"timeSpentMs,omitempty"`
	Meta
}

// User is a learner account. PasswordHash is opaque credential material;
// the engine never produces or verifies it, only stores and (optionally)
// exports it.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role,omitempty"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Meta
}

// StoreInfo describes one entity store for operational tooling.
type StoreInfo struct {
	Store string `json:"store"`
	Count int64  `json:"count"`
	Size  int64  `json:"size"`
}

// StorageInfo is the aggregate storage report returned by Info. It is
// always fully populated; an unavailable engine yields zeroed stats.
type StorageInfo struct {
	TotalSize   int64       `json:"total_size"`
	ItemCount   int64       `json:"item_count"`
	PerStore    []StoreInfo `json:"per_store"`
	StorageKind string      `json:"storage_kind"`
}
