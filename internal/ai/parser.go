package ai

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/studyloop/engine/internal/decay"
)

type QuestionPayload struct {
	Questions []GeneratedQuestion `json:"questions"`
}

type GeneratedQuestion struct {
	Prompt        string   `json:"prompt"`
	QuestionType  string   `json:"question_type"`
	Choices       []string `json:"choices,omitempty"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// legacyPayload is the pre-v2 generation format some model snapshots
// still emit: {"quiz":[{"question":...,"answer":...}]}.
type legacyPayload struct {
	Quiz []struct {
		Question    string   `json:"question"`
		Type        string   `json:"type"`
		Options     []string `json:"options"`
		Answer      string   `json:"answer"`
		Explanation string   `json:"explanation"`
	} `json:"quiz"`
}

// ParseQuestionPayload parses a generation response. Malformed output is
// a soft failure: it tries the current format, then the legacy format,
// and finally returns an empty payload rather than an error so one bad
// response never aborts a batch.
func ParseQuestionPayload(raw string) *QuestionPayload {
	cleaned := stripCodeFences(raw)

	var payload QuestionPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err == nil && len(payload.Questions) > 0 {
		return &payload
	}

	var legacy legacyPayload
	if err := json.Unmarshal([]byte(cleaned), &legacy); err == nil && len(legacy.Quiz) > 0 {
		converted := &QuestionPayload{Questions: make([]GeneratedQuestion, 0, len(legacy.Quiz))}
		for _, q := range legacy.Quiz {
			qType := q.Type
			if qType == "" {
				qType = "open_text"
			}
			converted.Questions = append(converted.Questions, GeneratedQuestion{
				Prompt:        q.Question,
				QuestionType:  qType,
				Choices:       q.Options,
				CorrectAnswer: q.Answer,
				Explanation:   q.Explanation,
			})
		}
		log.Printf("WARN: generation response used legacy quiz format (%d questions)", len(converted.Questions))
		return converted
	}

	log.Printf("WARN: unparseable generation response (%d bytes), falling back to empty payload", len(raw))
	return &QuestionPayload{}
}

type Grade struct {
	Score            float64  `json:"score"`
	MaxScore         float64  `json:"max_score"`
	Feedback         string   `json:"feedback"`
	DetectedMistakes []string `json:"detected_mistakes"`
	Confidence       float64  `json:"confidence"`
}

// ParseGrade parses a grading response, normalizing out-of-range values.
// Returns a zero grade with empty feedback on malformed output.
func ParseGrade(raw string) *Grade {
	cleaned := stripCodeFences(raw)

	var grade Grade
	if err := json.Unmarshal([]byte(cleaned), &grade); err != nil {
		log.Printf("WARN: unparseable grading response, falling back to zero grade")
		return &Grade{MaxScore: 1}
	}

	if grade.MaxScore <= 0 {
		grade.MaxScore = 1
	}
	if grade.Score < 0 {
		grade.Score = 0
	}
	if grade.Score > grade.MaxScore {
		grade.Score = grade.MaxScore
	}
	grade.Confidence = decay.Clamp01(grade.Confidence)
	return &grade
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```json"))
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```"))
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}
