package course

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pot-code/learnhub/internal/text"
)

// LessonType discriminator of lesson content
type LessonType string

const (
	LessonVideo               LessonType = "video"
	LessonText                LessonType = "text"
	LessonQuiz                LessonType = "quiz"
	LessonAssignment          LessonType = "assignment"
	LessonHotspot             LessonType = "hotspot"
	LessonSeriesQuestionnaire LessonType = "series-questionnaire"
)

// ErrUnknownLessonType lesson type is not one of the known kinds
var ErrUnknownLessonType = errors.New("unknown lesson type")

// ErrInvalidContent lesson content does not match its type
var ErrInvalidContent = errors.New("invalid lesson content")

// LessonContent typed payload of a lesson
type LessonContent interface {
	Type() LessonType
	Validate() error
}

type VideoContent struct {
	URL        string `json:"url"`
	Duration   int    `json:"duration,omitempty"` // seconds
	Transcript string `json:"transcript,omitempty"`
}

func (VideoContent) Type() LessonType { return LessonVideo }

func (vc *VideoContent) Validate() error {
	if vc.URL == "" {
		return errors.New("video url is required")
	}
	if vc.Duration < 0 {
		return errors.New("video duration must not be negative")
	}
	return nil
}

// text formats
const (
	FormatPlain    = "plain"
	FormatMarkdown = "markdown"
)

type TextContent struct {
	Body   string `json:"body"`
	Format string `json:"format,omitempty"`
}

func (TextContent) Type() LessonType { return LessonText }

// Validate also detects the body format when the author did not set one
func (tc *TextContent) Validate() error {
	if tc.Body == "" {
		return errors.New("text body is required")
	}
	switch tc.Format {
	case "":
		tc.Format = FormatPlain
		if text.ContainsMarkdown(tc.Body) {
			tc.Format = FormatMarkdown
		}
	case FormatPlain, FormatMarkdown, "html":
	default:
		return fmt.Errorf("unknown text format %q", tc.Format)
	}
	return nil
}

type QuizQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      int      `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
}

type QuizContent struct {
	Questions    []QuizQuestion `json:"questions"`
	PassingScore int            `json:"passing_score,omitempty"` // percent
}

func (QuizContent) Type() LessonType { return LessonQuiz }

func (qc *QuizContent) Validate() error {
	if len(qc.Questions) == 0 {
		return errors.New("quiz needs at least one question")
	}
	for i, q := range qc.Questions {
		if q.Question == "" {
			return fmt.Errorf("question %d is empty", i+1)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("question %d needs at least two options", i+1)
		}
		if q.Answer < 0 || q.Answer >= len(q.Options) {
			return fmt.Errorf("question %d answer is out of range", i+1)
		}
	}
	if qc.PassingScore < 0 || qc.PassingScore > 100 {
		return errors.New("passing score must be within 0 and 100")
	}
	return nil
}

type AssignmentContent struct {
	Instructions  string `json:"instructions"`
	AttachmentURL string `json:"attachment_url,omitempty"`
	DueDays       int    `json:"due_days,omitempty"`
}

func (AssignmentContent) Type() LessonType { return LessonAssignment }

func (ac *AssignmentContent) Validate() error {
	if ac.Instructions == "" {
		return errors.New("assignment instructions are required")
	}
	if ac.DueDays < 0 {
		return errors.New("due days must not be negative")
	}
	return nil
}

type Hotspot struct {
	X           float64 `json:"x"` // percent of image width
	Y           float64 `json:"y"` // percent of image height
	Label       string  `json:"label"`
	Description string  `json:"description,omitempty"`
}

type HotspotContent struct {
	ImageURL string    `json:"image_url"`
	Spots    []Hotspot `json:"spots"`
}

func (HotspotContent) Type() LessonType { return LessonHotspot }

func (hc *HotspotContent) Validate() error {
	if hc.ImageURL == "" {
		return errors.New("hotspot image is required")
	}
	for i, s := range hc.Spots {
		if s.X < 0 || s.X > 100 || s.Y < 0 || s.Y > 100 {
			return fmt.Errorf("hotspot %d is outside the image", i+1)
		}
		if s.Label == "" {
			return fmt.Errorf("hotspot %d needs a label", i+1)
		}
	}
	return nil
}

type SeriesQuestion struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
	Kind   string `json:"kind"` // open, scale or choice
}

type SeriesQuestionnaireContent struct {
	QuestionnaireID string           `json:"questionnaire_id,omitempty"`
	Title           string           `json:"title"`
	Questions       []SeriesQuestion `json:"questions"`
}

func (SeriesQuestionnaireContent) Type() LessonType { return LessonSeriesQuestionnaire }

func (sc *SeriesQuestionnaireContent) Validate() error {
	if sc.QuestionnaireID == "" && len(sc.Questions) == 0 {
		return errors.New("questionnaire reference or questions are required")
	}
	for i, q := range sc.Questions {
		if q.Prompt == "" {
			return fmt.Errorf("question %d is empty", i+1)
		}
	}
	return nil
}

func newContent(t LessonType) (LessonContent, error) {
	switch t {
	case LessonVideo:
		return new(VideoContent), nil
	case LessonText:
		return new(TextContent), nil
	case LessonQuiz:
		return new(QuizContent), nil
	case LessonAssignment:
		return new(AssignmentContent), nil
	case LessonHotspot:
		return new(HotspotContent), nil
	case LessonSeriesQuestionnaire:
		return new(SeriesQuestionnaireContent), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownLessonType, t)
}

// DecodeContent parse and validate raw according to t
func DecodeContent(t LessonType, raw json.RawMessage) (LessonContent, error) {
	content, err := newContent(t)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, content); err != nil {
		return nil, fmt.Errorf("%w: decode %s content: %s", ErrInvalidContent, t, err)
	}
	if err := content.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidContent, err)
	}
	return content, nil
}
