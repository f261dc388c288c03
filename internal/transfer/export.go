// ABOUTME: Export side of the cascade engine: every granularity from a full
// ABOUTME: catalog snapshot down to a single quiz, with ancestor context

package transfer

import (
	"context"
	"time"

	"github.com/g333vn/Glingo-sub002/internal/store"
)

// ExamShellWarning is set on exam exports whose sections carry no
// questions: the document is importable but only recreates the shell.
const ExamShellWarning = "exam has no questions; importing recreates an empty shell"

// ExportOptions gates the user-record portion of full and date-range
// exports. Credential material is only carried when IncludeCredentials is
// set explicitly.
type ExportOptions struct {
	IncludeUsers       bool
	IncludeCredentials bool
}

// DateRangeOptions controls date-range exports.
type DateRangeOptions struct {
	// IncludeSubtrees pulls the chapter/lesson/quiz subtree of every
	// matched book into the document.
	IncludeSubtrees bool

	IncludeUsers       bool
	IncludeCredentials bool
}

// ExportFull snapshots the entire catalog.
func (e *Engine) ExportFull(ctx context.Context, opts ExportOptions) (*Document, error) {
	doc := newDocument(TypeFull)

	series, err := e.store.ListAllSeries(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range series {
		doc.addSeries(s)
	}

	books, err := e.store.ListAllBooks(ctx)
	if err != nil {
		return nil, err
	}
	for _, b := range books {
		doc.addBook(b)
	}

	chapters, err := e.store.ListAllChapterRecords(ctx)
	if err != nil {
		return nil, err
	}
	for bookID, list := range chapters {
		doc.setChapters(bookID, list)
	}

	lessons, err := e.store.ListAllLessonRecords(ctx)
	if err != nil {
		return nil, err
	}
	for key, list := range lessons {
		doc.addLessonRecord(key, list)
	}

	quizzes, err := e.store.ListAllQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	for _, q := range quizzes {
		doc.addQuiz(q)
	}

	exams, err := e.store.ListAllExams(ctx)
	if err != nil {
		return nil, err
	}
	for _, ex := range exams {
		doc.addExam(ex)
	}

	configs, err := e.store.ListAllLevelConfigs(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range configs {
		doc.addLevelConfig(c)
	}

	if opts.IncludeUsers {
		if err := e.addUsers(ctx, doc, opts.IncludeCredentials); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// ExportLevel exports everything scoped to one proficiency level.
func (e *Engine) ExportLevel(ctx context.Context, level string) (*Document, error) {
	doc := newDocument(TypeLevel)
	doc.Level = level

	series, err := e.store.ListSeries(ctx, level)
	if err != nil {
		return nil, err
	}
	for _, s := range series {
		doc.addSeries(s)
	}

	books, err := e.store.ListBooks(ctx, level)
	if err != nil {
		return nil, err
	}
	for _, b := range books {
		doc.addBook(b)
		if err := e.addBookSubtree(ctx, doc, b.ID); err != nil {
			return nil, err
		}
	}

	exams, err := e.store.ListExams(ctx, level)
	if err != nil {
		return nil, err
	}
	for _, ex := range exams {
		doc.addExam(ex)
	}

	cfg, err := e.store.GetLevelConfig(ctx, level)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		doc.addLevelConfig(*cfg)
	}
	return doc, nil
}

// ExportSeries exports a series and the books whose category matches its
// name, with their subtrees.
func (e *Engine) ExportSeries(ctx context.Context, level, seriesID string) (*Document, error) {
	s, err := e.store.GetSeries(ctx, level, seriesID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, notFound("series", JoinKey(level, seriesID))
	}

	doc := newDocument(TypeSeries)
	doc.Level = level
	doc.addSeries(*s)

	books, err := e.store.ListBooksByCategory(ctx, level, s.Name)
	if err != nil {
		return nil, err
	}
	for _, b := range books {
		doc.addBook(b)
		if err := e.addBookSubtree(ctx, doc, b.ID); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// ExportBook exports one book and its full subtree.
func (e *Engine) ExportBook(ctx context.Context, bookID string) (*Document, error) {
	b, err := e.store.FindBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, notFound("book", bookID)
	}

	doc := newDocument(TypeBook)
	doc.addBook(*b)
	if err := e.addBookSubtree(ctx, doc, b.ID); err != nil {
		return nil, err
	}
	return doc, nil
}

// ExportChapter exports one chapter with its lessons and quizzes. The book
// record rides along as ancestor context.
func (e *Engine) ExportChapter(ctx context.Context, bookID, chapterID string) (*Document, error) {
	doc := newDocument(TypeChapter)
	if _, err := e.addChapterContext(ctx, doc, bookID, chapterID); err != nil {
		return nil, err
	}

	lessons, err := e.store.GetLessons(ctx, bookID, chapterID)
	if err != nil {
		return nil, err
	}
	if lessons != nil {
		doc.addLessonRecord(JoinKey(bookID, chapterID), lessons)
	}

	quizzes, err := e.store.ListQuizzesByChapter(ctx, bookID, chapterID)
	if err != nil {
		return nil, err
	}
	for _, q := range quizzes {
		doc.addQuiz(q)
	}
	return doc, nil
}

// ExportLesson exports one lesson and its quiz, with book and chapter
// ancestor context.
func (e *Engine) ExportLesson(ctx context.Context, bookID, chapterID, lessonID string) (*Document, error) {
	doc := newDocument(TypeLesson)
	if _, err := e.addChapterContext(ctx, doc, bookID, chapterID); err != nil {
		return nil, err
	}

	lesson, err := e.findLesson(ctx, bookID, chapterID, lessonID)
	if err != nil {
		return nil, err
	}
	doc.addLessonRecord(JoinKey(bookID, chapterID), []store.Lesson{*lesson})

	quiz, err := e.store.GetQuiz(ctx, bookID, chapterID, lessonID)
	if err != nil {
		return nil, err
	}
	if quiz != nil {
		doc.addQuiz(*quiz)
	}
	return doc, nil
}

// ExportQuiz exports one quiz with the full ancestor chain.
func (e *Engine) ExportQuiz(ctx context.Context, bookID, chapterID, lessonID string) (*Document, error) {
	quiz, err := e.store.GetQuiz(ctx, bookID, chapterID, lessonID)
	if err != nil {
		return nil, err
	}
	if quiz == nil {
		return nil, notFound("quiz", JoinKey(bookID, chapterID, lessonID))
	}

	doc := newDocument(TypeQuiz)
	if _, err := e.addChapterContext(ctx, doc, bookID, chapterID); err != nil {
		return nil, err
	}
	lesson, err := e.findLesson(ctx, bookID, chapterID, lessonID)
	if err != nil {
		return nil, err
	}
	doc.addLessonRecord(JoinKey(bookID, chapterID), []store.Lesson{*lesson})
	doc.addQuiz(*quiz)
	return doc, nil
}

// ExportExam exports one exam. A question-less exam still exports, with
// the shell warning set on the document.
func (e *Engine) ExportExam(ctx context.Context, level, examID string) (*Document, error) {
	ex, err := e.store.GetExam(ctx, level, examID)
	if err != nil {
		return nil, err
	}
	if ex == nil {
		return nil, notFound("exam", JoinKey(level, examID))
	}

	doc := newDocument(TypeExam)
	doc.Level = level
	doc.addExam(*ex)
	if examIsShell(*ex) {
		doc.Warning = ExamShellWarning
	}
	return doc, nil
}

// ExportExamYear exports every exam of a level for one sitting year.
func (e *Engine) ExportExamYear(ctx context.Context, level string, year int) (*Document, error) {
	exams, err := e.store.ListExamsByYear(ctx, level, year)
	if err != nil {
		return nil, err
	}

	doc := newDocument(TypeExamYear)
	doc.Level = level
	shells := 0
	for _, ex := range exams {
		doc.addExam(ex)
		if examIsShell(ex) {
			shells++
		}
	}
	if len(exams) > 0 && shells == len(exams) {
		doc.Warning = ExamShellWarning
	}
	return doc, nil
}

// ExportExamSection exports one named section of an exam, carried inside
// an exam record stripped down to that section.
func (e *Engine) ExportExamSection(ctx context.Context, level, examID, section string) (*Document, error) {
	ex, err := e.store.GetExam(ctx, level, examID)
	if err != nil {
		return nil, err
	}
	if ex == nil {
		return nil, notFound("exam", JoinKey(level, examID))
	}

	var matched *store.ExamSection
	for i := range ex.Sections {
		if ex.Sections[i].Name == section {
			matched = &ex.Sections[i]
			break
		}
	}
	if matched == nil {
		return nil, notFound("exam section", JoinKey(level, examID, section))
	}

	trimmed := *ex
	trimmed.Sections = []store.ExamSection{*matched}

	doc := newDocument(TypeExamSection)
	doc.Level = level
	doc.addExam(trimmed)
	if len(matched.Questions) == 0 {
		doc.Warning = ExamShellWarning
	}
	return doc, nil
}

// ExportDateRange exports catalog entities created inside the inclusive
// range. Chapter and lesson list records match per element, quizzes on
// their own creation time; exams match on their sitting date when
// parseable, falling back to the record's creation time.
func (e *Engine) ExportDateRange(ctx context.Context, r store.DateRange, opts DateRangeOptions) (*Document, error) {
	doc := newDocument(TypeDateRange)

	series, err := e.store.ListAllSeries(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range series {
		if r.Contains(s.CreatedAt) {
			doc.addSeries(s)
		}
	}

	books, err := e.store.ListAllBooks(ctx)
	if err != nil {
		return nil, err
	}
	for _, b := range books {
		if !r.Contains(b.CreatedAt) {
			continue
		}
		doc.addBook(b)
		if opts.IncludeSubtrees {
			if err := e.addBookSubtree(ctx, doc, b.ID); err != nil {
				return nil, err
			}
		}
	}

	// List records carry only the elements created inside the range. A
	// record a matched book already pulled in whole stays whole.
	chapterRecords, err := e.store.ListAllChapterRecords(ctx)
	if err != nil {
		return nil, err
	}
	for bookID, list := range chapterRecords {
		if _, ok := doc.Chapters[bookID]; ok {
			continue
		}
		var matched []store.Chapter
		for _, ch := range list {
			if r.Contains(ch.CreatedAt) {
				matched = append(matched, ch)
			}
		}
		if len(matched) > 0 {
			doc.setChapters(bookID, matched)
		}
	}

	lessonRecords, err := e.store.ListAllLessonRecords(ctx)
	if err != nil {
		return nil, err
	}
	for key, list := range lessonRecords {
		if _, ok := doc.Lessons[key]; ok {
			continue
		}
		var matched []store.Lesson
		for _, l := range list {
			if r.Contains(l.CreatedAt) {
				matched = append(matched, l)
			}
		}
		if len(matched) > 0 {
			doc.addLessonRecord(key, matched)
		}
	}

	quizzes, err := e.store.ListAllQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	for _, q := range quizzes {
		if r.Contains(q.CreatedAt) {
			doc.addQuiz(q)
		}
	}

	exams, err := e.store.ListAllExams(ctx)
	if err != nil {
		return nil, err
	}
	for _, ex := range exams {
		if r.Contains(examDate(ex)) {
			doc.addExam(ex)
		}
	}

	configs, err := e.store.ListAllLevelConfigs(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range configs {
		if r.Contains(c.CreatedAt) {
			doc.addLevelConfig(c)
		}
	}

	if opts.IncludeUsers {
		users, err := e.store.ListUsers(ctx)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			if !r.Contains(u.CreatedAt) {
				continue
			}
			if !opts.IncludeCredentials {
				u.PasswordHash = ""
			}
			doc.addUser(u)
		}
	}
	return doc, nil
}

// addBookSubtree pulls a book's chapter record, lesson records and quizzes
// into the document.
func (e *Engine) addBookSubtree(ctx context.Context, doc *Document, bookID string) error {
	chapters, err := e.store.GetChapters(ctx, bookID)
	if err != nil {
		return err
	}
	if chapters != nil {
		doc.setChapters(bookID, chapters)
	}

	lessons, err := e.store.ListLessonRecordsByBook(ctx, bookID)
	if err != nil {
		return err
	}
	for chapterID, list := range lessons {
		doc.addLessonRecord(JoinKey(bookID, chapterID), list)
	}

	quizzes, err := e.store.ListQuizzesByBook(ctx, bookID)
	if err != nil {
		return err
	}
	for _, q := range quizzes {
		doc.addQuiz(q)
	}
	return nil
}

// addChapterContext adds the book record (ancestor) and the single chapter
// element to the document, returning the chapter.
func (e *Engine) addChapterContext(ctx context.Context, doc *Document, bookID, chapterID string) (*store.Chapter, error) {
	b, err := e.store.FindBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, notFound("book", bookID)
	}
	doc.addBook(*b)

	chapters, err := e.store.GetChapters(ctx, bookID)
	if err != nil {
		return nil, err
	}
	for i := range chapters {
		if chapters[i].ID == chapterID {
			doc.setChapters(bookID, []store.Chapter{chapters[i]})
			return &chapters[i], nil
		}
	}
	return nil, notFound("chapter", JoinKey(bookID, chapterID))
}

func (e *Engine) findLesson(ctx context.Context, bookID, chapterID, lessonID string) (*store.Lesson, error) {
	lessons, err := e.store.GetLessons(ctx, bookID, chapterID)
	if err != nil {
		return nil, err
	}
	for i := range lessons {
		if lessons[i].ID == lessonID {
			return &lessons[i], nil
		}
	}
	return nil, notFound("lesson", JoinKey(bookID, chapterID, lessonID))
}

func (e *Engine) addUsers(ctx context.Context, doc *Document, includeCredentials bool) error {
	users, err := e.store.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		if !includeCredentials {
			u.PasswordHash = ""
		}
		doc.addUser(u)
	}
	return nil
}

func examIsShell(ex store.Exam) bool {
	for _, s := range ex.Sections {
		if len(s.Questions) > 0 {
			return false
		}
	}
	return true
}

// examDate resolves the time used for date-range matching: the sitting
// date when parseable, otherwise the record's creation time.
func examDate(ex store.Exam) time.Time {
	if ex.Date != "" {
		if t, err := time.Parse("2006-01-02", ex.Date); err == nil {
			return t
		}
	}
	return ex.CreatedAt
}

// --- document builders ---

func ensure[V any](m map[string]V) map[string]V {
	if m == nil {
		return make(map[string]V)
	}
	return m
}

func (d *Document) addSeries(s store.Series) {
	d.Series = ensure(d.Series)
	d.Series[JoinKey(s.Level, s.ID)] = s
}

func (d *Document) addBook(b store.Book) {
	d.Books = ensure(d.Books)
	d.Books[JoinKey(b.Level, b.ID)] = b
}

func (d *Document) setChapters(bookID string, list []store.Chapter) {
	d.Chapters = ensure(d.Chapters)
	d.Chapters[bookID] = list
}

func (d *Document) addLessonRecord(key string, list []store.Lesson) {
	d.Lessons = ensure(d.Lessons)
	d.Lessons[key] = list
}

func (d *Document) addQuiz(q store.Quiz) {
	d.Quizzes = ensure(d.Quizzes)
	d.Quizzes[JoinKey(q.BookID, q.ChapterID, q.LessonID)] = q
}

func (d *Document) addExam(ex store.Exam) {
	d.Exams = ensure(d.Exams)
	d.Exams[JoinKey(ex.Level, ex.ID)] = ex
}

func (d *Document) addLevelConfig(c store.LevelConfig) {
	d.LevelConfigs = ensure(d.LevelConfigs)
	d.LevelConfigs[c.Level] = c
}

func (d *Document) addUser(u store.User) {
	d.Users = ensure(d.Users)
	d.Users[u.ID] = u
}
