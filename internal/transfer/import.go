// ABOUTME: Import side of the cascade engine: the exact inverse of export,
// ABOUTME: idempotent, with insert-only merging of ancestor context

package transfer

import (
	"context"
	"strings"

	"github.com/g333vn/Glingo-sub002/internal/store"
)

// ImportReport summarizes one import. Partial failures never abort the
// remaining items; each failed item lands in Errors.
type ImportReport struct {
	Imported int         `json:"imported"`
	Skipped  int         `json:"skipped"` // ancestors that already existed
	Errors   []ItemError `json:"errors,omitempty"`
}

// Success reports whether every item imported cleanly.
func (r *ImportReport) Success() bool { return len(r.Errors) == 0 }

// Import validates and applies a raw transfer document. Malformed
// documents are rejected with a *ValidationError before any write.
func (e *Engine) Import(ctx context.Context, raw []byte) (*ImportReport, error) {
	doc, err := ParseDocument(raw)
	if err != nil {
		return nil, err
	}
	return e.ImportDocument(ctx, doc)
}

// ImportDocument applies a parsed transfer document. The named subtree is
// upserted preserving document timestamps; ancestor records (the book a
// lesson document rides in on, for example) are merged insert-only so a
// partial import never clobbers richer local data.
func (e *Engine) ImportDocument(ctx context.Context, doc *Document) (*ImportReport, error) {
	rep := &ImportReport{}

	ancestorBooks := doc.Type == TypeChapter || doc.Type == TypeLesson || doc.Type == TypeQuiz
	ancestorChapters := doc.Type == TypeLesson || doc.Type == TypeQuiz
	ancestorLessons := doc.Type == TypeQuiz

	// Chapter and lesson list records in the partial document types carry
	// only the exported elements, so they merge instead of replacing.
	partialChapters := doc.Type == TypeChapter || ancestorChapters
	partialLessons := doc.Type == TypeLesson || ancestorLessons

	for key, s := range doc.Series {
		s := s
		if err := e.store.PutSeriesRaw(ctx, &s); err != nil {
			rep.Errors = append(rep.Errors, itemError("series", key, err))
			continue
		}
		rep.Imported++
	}

	for key, b := range doc.Books {
		b := b
		if ancestorBooks {
			existing, err := e.store.GetBook(ctx, b.Level, b.ID)
			if err != nil {
				rep.Errors = append(rep.Errors, itemError("books", key, err))
				continue
			}
			if existing != nil {
				rep.Skipped++
				continue
			}
		}
		if err := e.store.PutBookRaw(ctx, &b); err != nil {
			rep.Errors = append(rep.Errors, itemError("books", key, err))
			continue
		}
		rep.Imported++
	}

	for bookID, list := range doc.Chapters {
		if partialChapters {
			if err := e.mergeChapterRecord(ctx, bookID, list, ancestorChapters); err != nil {
				rep.Errors = append(rep.Errors, itemError("chapters", bookID, err))
				continue
			}
		} else if err := e.store.PutChaptersRaw(ctx, bookID, list); err != nil {
			rep.Errors = append(rep.Errors, itemError("chapters", bookID, err))
			continue
		}
		rep.Imported++
	}

	for key, list := range doc.Lessons {
		bookID, chapterID := splitLessonKey(doc, key)
		if bookID == "" || chapterID == "" {
			rep.Errors = append(rep.Errors, itemError("lessons", key, notFound("lesson record book", key)))
			continue
		}
		if partialLessons {
			if err := e.mergeLessonRecord(ctx, bookID, chapterID, list, ancestorLessons); err != nil {
				rep.Errors = append(rep.Errors, itemError("lessons", key, err))
				continue
			}
		} else if err := e.store.PutLessonsRaw(ctx, bookID, chapterID, list); err != nil {
			rep.Errors = append(rep.Errors, itemError("lessons", key, err))
			continue
		}
		rep.Imported++
	}

	for key, q := range doc.Quizzes {
		q := q
		if err := e.store.PutQuizRaw(ctx, &q); err != nil {
			rep.Errors = append(rep.Errors, itemError("quizzes", key, err))
			continue
		}
		rep.Imported++
	}

	for key, ex := range doc.Exams {
		ex := ex
		if err := e.store.PutExamRaw(ctx, &ex); err != nil {
			rep.Errors = append(rep.Errors, itemError("exams", key, err))
			continue
		}
		rep.Imported++
	}

	for key, c := range doc.LevelConfigs {
		c := c
		if err := e.store.PutLevelConfigRaw(ctx, &c); err != nil {
			rep.Errors = append(rep.Errors, itemError("levelConfigs", key, err))
			continue
		}
		rep.Imported++
	}

	for key, u := range doc.Users {
		u := u
		if err := e.importUser(ctx, &u); err != nil {
			rep.Errors = append(rep.Errors, itemError("users", key, err))
			continue
		}
		rep.Imported++
	}

	e.invalidate("levels.list", "series.list", "books.list", "chapters.get",
		"lessons.get", "quizzes.get", "exams.list", "levelConfigs.get", "users.list")

	e.logger.Info("import finished", "type", doc.Type,
		"imported", rep.Imported, "skipped", rep.Skipped, "failed", len(rep.Errors))
	return rep, nil
}

// mergeChapterRecord folds incoming chapter elements into the stored list.
// With insertOnly set, elements whose id already exists are left alone;
// otherwise they are replaced in place. New elements append.
func (e *Engine) mergeChapterRecord(ctx context.Context, bookID string, incoming []store.Chapter, insertOnly bool) error {
	existing, err := e.store.GetChapters(ctx, bookID)
	if err != nil {
		return err
	}
	index := make(map[string]int, len(existing))
	for i, c := range existing {
		index[c.ID] = i
	}
	merged := existing
	for _, c := range incoming {
		if i, ok := index[c.ID]; ok {
			if !insertOnly {
				merged[i] = c
			}
			continue
		}
		merged = append(merged, c)
	}
	return e.store.PutChaptersRaw(ctx, bookID, merged)
}

// mergeLessonRecord is mergeChapterRecord for lesson lists.
func (e *Engine) mergeLessonRecord(ctx context.Context, bookID, chapterID string, incoming []store.Lesson, insertOnly bool) error {
	existing, err := e.store.GetLessons(ctx, bookID, chapterID)
	if err != nil {
		return err
	}
	index := make(map[string]int, len(existing))
	for i, l := range existing {
		index[l.ID] = i
	}
	merged := existing
	for _, l := range incoming {
		if i, ok := index[l.ID]; ok {
			if !insertOnly {
				merged[i] = l
			}
			continue
		}
		merged = append(merged, l)
	}
	return e.store.PutLessonsRaw(ctx, bookID, chapterID, merged)
}

// importUser upserts a user record. A document without credential material
// never blanks a locally stored credential.
func (e *Engine) importUser(ctx context.Context, u *store.User) error {
	if u.PasswordHash == "" {
		existing, err := e.store.GetUser(ctx, u.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			u.PasswordHash = existing.PasswordHash
		}
	}
	return e.store.PutUserRaw(ctx, u)
}

// splitLessonKey resolves a "bookId_chapterId" document key. Book ids may
// themselves contain the separator, so known book ids from the document's
// own records are tried first, then the last separator wins.
func splitLessonKey(doc *Document, key string) (bookID, chapterID string) {
	for _, b := range doc.Books {
		prefix := b.ID + "_"
		if strings.HasPrefix(key, prefix) && len(key) > len(prefix) {
			return b.ID, key[len(prefix):]
		}
	}
	for bookID := range doc.Chapters {
		prefix := bookID + "_"
		if strings.HasPrefix(key, prefix) && len(key) > len(prefix) {
			return bookID, key[len(prefix):]
		}
	}
	if i := strings.LastIndex(key, "_"); i > 0 && i < len(key)-1 {
		return key[:i], key[i+1:]
	}
	return "", ""
}
