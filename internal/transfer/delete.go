// ABOUTME: Cascade delete side of the engine: removing a node removes its
// ABOUTME: subtree, tolerating orphans and isolating per-item failures

package transfer

import (
	"context"
)

// DeleteResult reports a cascade delete. Success means every step
// completed; failed steps are listed in Errors and never stop the
// remaining steps. A missing parent is nothing to cascade, not a failure.
type DeleteResult struct {
	Success bool        `json:"success"`
	Errors  []ItemError `json:"errors,omitempty"`
}

func (r *DeleteResult) record(storeName, key string, err error) {
	if err != nil {
		r.Errors = append(r.Errors, itemError(storeName, key, err))
	}
}

func (r *DeleteResult) finish() *DeleteResult {
	r.Success = len(r.Errors) == 0
	return r
}

// DeleteBook removes a book and everything beneath it: quizzes, lesson
// records and the chapter record. The descendant cleanup runs even when
// the book row itself is already gone, so orphaned subtrees still get
// collected.
func (e *Engine) DeleteBook(ctx context.Context, level, bookID string) *DeleteResult {
	res := &DeleteResult{}
	e.deleteBookSubtree(ctx, bookID, res)
	res.record("books", JoinKey(level, bookID), e.store.DeleteBook(ctx, level, bookID))
	e.invalidate("books.list", "chapters.get", "lessons.get", "quizzes.get")
	return res.finish()
}

func (e *Engine) deleteBookSubtree(ctx context.Context, bookID string, res *DeleteResult) {
	res.record("quizzes", bookID, e.store.DeleteQuizzesByBook(ctx, bookID))
	res.record("lessons", bookID, e.store.DeleteLessonsByBook(ctx, bookID))
	res.record("chapters", bookID, e.store.DeleteChapters(ctx, bookID))
}

// DeleteChapter removes one chapter element from the book's list along
// with its lesson record and quizzes.
func (e *Engine) DeleteChapter(ctx context.Context, bookID, chapterID string) *DeleteResult {
	res := &DeleteResult{}
	res.record("quizzes", JoinKey(bookID, chapterID),
		e.store.DeleteQuizzesByChapter(ctx, bookID, chapterID))
	res.record("lessons", JoinKey(bookID, chapterID),
		e.store.DeleteLessons(ctx, bookID, chapterID))

	chapters, err := e.store.GetChapters(ctx, bookID)
	if err != nil {
		res.record("chapters", bookID, err)
	} else if chapters != nil {
		kept := chapters[:0]
		for _, c := range chapters {
			if c.ID != chapterID {
				kept = append(kept, c)
			}
		}
		if len(kept) != len(chapters) {
			res.record("chapters", bookID, e.store.PutChaptersRaw(ctx, bookID, kept))
		}
	}

	e.invalidate("chapters.get", "lessons.get", "quizzes.get")
	return res.finish()
}

// DeleteLesson removes one lesson element and its quiz.
func (e *Engine) DeleteLesson(ctx context.Context, bookID, chapterID, lessonID string) *DeleteResult {
	res := &DeleteResult{}
	res.record("quizzes", JoinKey(bookID, chapterID, lessonID),
		e.store.DeleteQuiz(ctx, bookID, chapterID, lessonID))

	lessons, err := e.store.GetLessons(ctx, bookID, chapterID)
	if err != nil {
		res.record("lessons", JoinKey(bookID, chapterID), err)
	} else if lessons != nil {
		kept := lessons[:0]
		for _, l := range lessons {
			if l.ID != lessonID {
				kept = append(kept, l)
			}
		}
		if len(kept) != len(lessons) {
			res.record("lessons", JoinKey(bookID, chapterID),
				e.store.PutLessonsRaw(ctx, bookID, chapterID, kept))
		}
	}

	e.invalidate("lessons.get", "quizzes.get")
	return res.finish()
}

// DeleteSeries removes a series and every book whose category matches its
// name, cascading through each book's subtree. A missing series means
// nothing to cascade.
func (e *Engine) DeleteSeries(ctx context.Context, level, seriesID string) *DeleteResult {
	res := &DeleteResult{}
	s, err := e.store.GetSeries(ctx, level, seriesID)
	if err != nil {
		res.record("series", JoinKey(level, seriesID), err)
		return res.finish()
	}
	if s == nil {
		return res.finish()
	}

	books, err := e.store.ListBooksByCategory(ctx, level, s.Name)
	if err != nil {
		res.record("books", JoinKey(level, s.Name), err)
	}
	for _, b := range books {
		e.deleteBookSubtree(ctx, b.ID, res)
		res.record("books", JoinKey(b.Level, b.ID), e.store.DeleteBook(ctx, b.Level, b.ID))
	}

	res.record("series", JoinKey(level, seriesID), e.store.DeleteSeries(ctx, level, seriesID))
	e.invalidate("series.list", "books.list", "chapters.get", "lessons.get", "quizzes.get")
	return res.finish()
}

// DeleteLevel removes everything scoped to a level: its series (with their
// book cascades), remaining books, exams, config and the level record.
func (e *Engine) DeleteLevel(ctx context.Context, level string) *DeleteResult {
	res := &DeleteResult{}

	series, err := e.store.ListSeries(ctx, level)
	if err != nil {
		res.record("series", level, err)
	}
	for _, s := range series {
		sub := e.DeleteSeries(ctx, level, s.ID)
		res.Errors = append(res.Errors, sub.Errors...)
	}

	books, err := e.store.ListBooks(ctx, level)
	if err != nil {
		res.record("books", level, err)
	}
	for _, b := range books {
		e.deleteBookSubtree(ctx, b.ID, res)
		res.record("books", JoinKey(b.Level, b.ID), e.store.DeleteBook(ctx, b.Level, b.ID))
	}

	exams, err := e.store.ListExams(ctx, level)
	if err != nil {
		res.record("exams", level, err)
	}
	for _, ex := range exams {
		res.record("exams", JoinKey(level, ex.ID), e.store.DeleteExam(ctx, level, ex.ID))
	}

	res.record("levelConfigs", level, e.store.DeleteLevelConfig(ctx, level))
	res.record("levels", level, e.store.DeleteLevel(ctx, level))

	e.invalidate("levels.list", "series.list", "books.list", "chapters.get",
		"lessons.get", "quizzes.get", "exams.list", "levelConfigs.get")
	return res.finish()
}

// DeleteExam removes a single exam.
func (e *Engine) DeleteExam(ctx context.Context, level, examID string) *DeleteResult {
	res := &DeleteResult{}
	res.record("exams", JoinKey(level, examID), e.store.DeleteExam(ctx, level, examID))
	e.invalidate("exams.list")
	return res.finish()
}
