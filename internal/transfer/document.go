// ABOUTME: Versioned transfer document for cascade export/import
// ABOUTME: Parses and schema-validates documents before any write happens

package transfer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/g333vn/Glingo-sub002/internal/store"
)

// DocumentVersion is the transfer document format version this build
// produces and accepts.
const DocumentVersion = "2.0.0"

// Document types. Each names the granularity of the exported subtree.
const (
	TypeFull        = "full"
	TypeLevel       = "level"
	TypeSeries      = "series"
	TypeBook        = "book"
	TypeChapter     = "chapter"
	TypeLesson      = "lesson"
	TypeQuiz        = "quiz"
	TypeExam        = "exam"
	TypeExamYear    = "exam-year"
	TypeExamSection = "exam-section"
	TypeDateRange   = "date-range"
)

var documentTypes = map[string]bool{
	TypeFull: true, TypeLevel: true, TypeSeries: true, TypeBook: true,
	TypeChapter: true, TypeLesson: true, TypeQuiz: true, TypeExam: true,
	TypeExamYear: true, TypeExamSection: true, TypeDateRange: true,
}

// Document is the transfer container. Composite keys are joined with "_"
// only here, at the serialization boundary; every value also carries its
// own key fields, which the import path treats as authoritative.
type Document struct {
	Version   string    `json:"version"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// Level scopes level-bound document types (level, series, exam,
	// exam-year, exam-section).
	Level string `json:"level,omitempty"`

	// Warning is set on exports that produced a usable but incomplete
	// document, e.g. an exam shell with no questions.
	Warning string `json:"warning,omitempty"`

	Series       map[string]store.Series      `json:"series,omitempty"`       // level_id
	Books        map[string]store.Book        `json:"books,omitempty"`        // level_id
	Chapters     map[string][]store.Chapter   `json:"chapters,omitempty"`     // bookId
	Lessons      map[string][]store.Lesson    `json:"lessons,omitempty"`      // bookId_chapterId
	Quizzes      map[string]store.Quiz        `json:"quizzes,omitempty"`      // bookId_chapterId_lessonId
	Exams        map[string]store.Exam        `json:"exams,omitempty"`        // level_id
	LevelConfigs map[string]store.LevelConfig `json:"levelConfigs,omitempty"` // level
	Users        map[string]store.User        `json:"users,omitempty"`        // id
}

// JoinKey builds the "_"-joined composite key used for document map keys.
func JoinKey(parts ...string) string {
	return strings.Join(parts, "_")
}

// ValidationError reports a malformed transfer document. It is always
// returned before any write has been attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid transfer document: %s", e.Reason)
	}
	return fmt.Sprintf("invalid transfer document: %s: %s", e.Field, e.Reason)
}

// documentSchema constrains the document envelope. Entity payloads are
// decoded by encoding/json afterwards; the schema's job is catching the
// wrong-shape cases (bad type tag, arrays where maps belong) up front.
const documentSchema = `{
	"type": "object",
	"required": ["version", "type"],
	"properties": {
		"version": {"type": "string"},
		"type": {"type": "string"},
		"timestamp": {"type": "string"},
		"level": {"type": "string"},
		"warning": {"type": "string"},
		"series": {"type": "object"},
		"books": {"type": "object"},
		"chapters": {
			"type": "object",
			"additionalProperties": {"type": "array"}
		},
		"lessons": {
			"type": "object",
			"additionalProperties": {"type": "array"}
		},
		"quizzes": {"type": "object"},
		"exams": {"type": "object"},
		"levelConfigs": {"type": "object"},
		"users": {"type": "object"}
	}
}`

var schemaLoader = gojsonschema.NewStringLoader(documentSchema)

// ParseDocument decodes and validates a transfer document. Malformed
// input is rejected with a *ValidationError.
func ParseDocument(raw []byte) (*Document, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("not a JSON object: %v", err)}
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return nil, &ValidationError{Field: first.Field(), Reason: first.Description()}
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("decoding document: %v", err)}
	}

	if doc.Version != DocumentVersion {
		return nil, &ValidationError{Field: "version",
			Reason: fmt.Sprintf("unsupported version %q (want %q)", doc.Version, DocumentVersion)}
	}
	if !documentTypes[doc.Type] {
		return nil, &ValidationError{Field: "type",
			Reason: fmt.Sprintf("unknown document type %q", doc.Type)}
	}
	return &doc, nil
}

// Encode serializes a document for storage or transport.
func (d *Document) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding transfer document: %w", err)
	}
	return data, nil
}

func newDocument(docType string) *Document {
	return &Document{
		Version:   DocumentVersion,
		Type:      docType,
		Timestamp: time.Now().UTC(),
	}
}
