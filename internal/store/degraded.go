// ABOUTME: Degraded store used when the SQLite engine cannot be opened
// ABOUTME: Reads yield empty results; writes fail with ErrUnavailable

package store

import "context"

// Degraded implements Store without an engine behind it. Callers keep a
// working read surface (always empty) so the application can run in a
// browse-nothing mode; every write reports ErrUnavailable.
type Degraded struct{}

// NewDegraded returns the degraded fallback store.
func NewDegraded() *Degraded { return &Degraded{} }

func (Degraded) PutLevel(context.Context, *Level) error          { return ErrUnavailable }
func (Degraded) GetLevel(context.Context, string) (*Level, error) { return nil, nil }
func (Degraded) ListLevels(context.Context) ([]Level, error)     { return nil, nil }
func (Degraded) DeleteLevel(context.Context, string) error       { return ErrUnavailable }

func (Degraded) PutSeries(context.Context, *Series) error    { return ErrUnavailable }
func (Degraded) PutSeriesRaw(context.Context, *Series) error { return ErrUnavailable }
func (Degraded) GetSeries(context.Context, string, string) (*Series, error) {
	return nil, nil
}
func (Degraded) ListSeries(context.Context, string) ([]Series, error) { return nil, nil }
func (Degraded) ListAllSeries(context.Context) ([]Series, error)      { return nil, nil }
func (Degraded) DeleteSeries(context.Context, string, string) error   { return ErrUnavailable }

func (Degraded) PutBook(context.Context, *Book) error    { return ErrUnavailable }
func (Degraded) PutBookRaw(context.Context, *Book) error { return ErrUnavailable }
func (Degraded) GetBook(context.Context, string, string) (*Book, error) {
	return nil, nil
}
func (Degraded) FindBook(context.Context, string) (*Book, error)      { return nil, nil }
func (Degraded) ListBooks(context.Context, string) ([]Book, error)    { return nil, nil }
func (Degraded) ListBooksByCategory(context.Context, string, string) ([]Book, error) {
	return nil, nil
}
func (Degraded) ListAllBooks(context.Context) ([]Book, error)     { return nil, nil }
func (Degraded) DeleteBook(context.Context, string, string) error { return ErrUnavailable }

func (Degraded) PutChapters(context.Context, string, []Chapter) error    { return ErrUnavailable }
func (Degraded) PutChaptersRaw(context.Context, string, []Chapter) error { return ErrUnavailable }
func (Degraded) GetChapters(context.Context, string) ([]Chapter, error)  { return nil, nil }
func (Degraded) ListAllChapterRecords(context.Context) (map[string][]Chapter, error) {
	return map[string][]Chapter{}, nil
}
func (Degraded) DeleteChapters(context.Context, string) error { return ErrUnavailable }

func (Degraded) PutLessons(context.Context, string, string, []Lesson) error {
	return ErrUnavailable
}
func (Degraded) PutLessonsRaw(context.Context, string, string, []Lesson) error {
	return ErrUnavailable
}
func (Degraded) GetLessons(context.Context, string, string) ([]Lesson, error) {
	return nil, nil
}
func (Degraded) ListLessonRecordsByBook(context.Context, string) (map[string][]Lesson, error) {
	return map[string][]Lesson{}, nil
}
func (Degraded) ListAllLessonRecords(context.Context) (map[string][]Lesson, error) {
	return map[string][]Lesson{}, nil
}
func (Degraded) DeleteLessons(context.Context, string, string) error { return ErrUnavailable }
func (Degraded) DeleteLessonsByBook(context.Context, string) error   { return ErrUnavailable }

func (Degraded) PutQuiz(context.Context, *Quiz) error    { return ErrUnavailable }
func (Degraded) PutQuizRaw(context.Context, *Quiz) error { return ErrUnavailable }
func (Degraded) GetQuiz(context.Context, string, string, string) (*Quiz, error) {
	return nil, nil
}
func (Degraded) ListQuizzesByBook(context.Context, string) ([]Quiz, error) { return nil, nil }
func (Degraded) ListQuizzesByChapter(context.Context, string, string) ([]Quiz, error) {
	return nil, nil
}
func (Degraded) ListAllQuizzes(context.Context) ([]Quiz, error) { return nil, nil }
func (Degraded) DeleteQuiz(context.Context, string, string, string) error {
	return ErrUnavailable
}
func (Degraded) DeleteQuizzesByChapter(context.Context, string, string) error {
	return ErrUnavailable
}
func (Degraded) DeleteQuizzesByBook(context.Context, string) error { return ErrUnavailable }

func (Degraded) PutExam(context.Context, *Exam) error    { return ErrUnavailable }
func (Degraded) PutExamRaw(context.Context, *Exam) error { return ErrUnavailable }
func (Degraded) GetExam(context.Context, string, string) (*Exam, error) {
	return nil, nil
}
func (Degraded) ListExams(context.Context, string) ([]Exam, error) { return nil, nil }
func (Degraded) ListExamsByYear(context.Context, string, int) ([]Exam, error) {
	return nil, nil
}
func (Degraded) ListAllExams(context.Context) ([]Exam, error)     { return nil, nil }
func (Degraded) DeleteExam(context.Context, string, string) error { return ErrUnavailable }

func (Degraded) PutLevelConfig(context.Context, *LevelConfig) error    { return ErrUnavailable }
func (Degraded) PutLevelConfigRaw(context.Context, *LevelConfig) error { return ErrUnavailable }
func (Degraded) GetLevelConfig(context.Context, string) (*LevelConfig, error) {
	return nil, nil
}
func (Degraded) ListAllLevelConfigs(context.Context) ([]LevelConfig, error) {
	return nil, nil
}
func (Degraded) DeleteLevelConfig(context.Context, string) error { return ErrUnavailable }

func (Degraded) PutCardProgress(context.Context, *CardProgress) error { return ErrUnavailable }
func (Degraded) GetCardProgress(context.Context, string, string) (*CardProgress, error) {
	return nil, nil
}
func (Degraded) ListCardProgressByUser(context.Context, string) ([]CardProgress, error) {
	return nil, nil
}
func (Degraded) ListCardProgressByDeck(context.Context, string, string) ([]CardProgress, error) {
	return nil, nil
}
func (Degraded) DeleteCardProgress(context.Context, string, string) error {
	return ErrUnavailable
}

func (Degraded) AddReview(context.Context, *Review) error { return ErrUnavailable }
func (Degraded) ListReviewsByCard(context.Context, string, string) ([]Review, error) {
	return nil, nil
}
func (Degraded) ListReviewsByUser(context.Context, string, int) ([]Review, error) {
	return nil, nil
}

func (Degraded) PutDailyStat(context.Context, *DailyStat) error { return ErrUnavailable }
func (Degraded) GetDailyStat(context.Context, string, string, string) (*DailyStat, error) {
	return nil, nil
}
func (Degraded) ListDailyStats(context.Context, string, string) ([]DailyStat, error) {
	return nil, nil
}

func (Degraded) PutUser(context.Context, *User) error          { return ErrUnavailable }
func (Degraded) PutUserRaw(context.Context, *User) error       { return ErrUnavailable }
func (Degraded) GetUser(context.Context, string) (*User, error) { return nil, nil }
func (Degraded) ListUsers(context.Context) ([]User, error)     { return nil, nil }
func (Degraded) DeleteUser(context.Context, string) error      { return ErrUnavailable }

func (Degraded) Info(context.Context) StorageInfo {
	return StorageInfo{StorageKind: "unavailable"}
}

func (Degraded) Close() error { return nil }

var _ Store = (*Degraded)(nil)
