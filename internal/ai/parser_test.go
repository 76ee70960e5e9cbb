package ai

import "testing"

func TestParseQuestionPayload(t *testing.T) {
	raw := `{"questions":[{"prompt":"What is X?","question_type":"open_text","correct_answer":"Y","explanation":"because"}]}`
	payload := ParseQuestionPayload(raw)
	if len(payload.Questions) != 1 {
		t.Fatalf("got %d questions, want 1", len(payload.Questions))
	}
	if payload.Questions[0].Prompt != "What is X?" {
		t.Errorf("prompt = %q", payload.Questions[0].Prompt)
	}
}

func TestParseQuestionPayloadStripsFences(t *testing.T) {
	raw := "```json\n{\"questions\":[{\"prompt\":\"q\",\"question_type\":\"true_false\",\"correct_answer\":\"true\",\"explanation\":\"e\"}]}\n```"
	payload := ParseQuestionPayload(raw)
	if len(payload.Questions) != 1 {
		t.Fatalf("fenced payload: got %d questions, want 1", len(payload.Questions))
	}
}

func TestParseQuestionPayloadLegacyFormat(t *testing.T) {
	raw := `{"quiz":[{"question":"Old style?","options":["a","b"],"answer":"a","explanation":"e"}]}`
	payload := ParseQuestionPayload(raw)
	if len(payload.Questions) != 1 {
		t.Fatalf("legacy payload: got %d questions, want 1", len(payload.Questions))
	}
	q := payload.Questions[0]
	if q.Prompt != "Old style?" || q.CorrectAnswer != "a" {
		t.Errorf("legacy conversion = %+v", q)
	}
	if q.QuestionType != "open_text" {
		t.Errorf("legacy default type = %q, want open_text", q.QuestionType)
	}
}

func TestParseQuestionPayloadMalformed(t *testing.T) {
	// Malformed output is a soft failure, never an error.
	payload := ParseQuestionPayload("the model rambled instead of emitting JSON")
	if payload == nil {
		t.Fatal("got nil payload for malformed input")
	}
	if len(payload.Questions) != 0 {
		t.Errorf("got %d questions from garbage, want 0", len(payload.Questions))
	}
}

func TestParseGrade(t *testing.T) {
	grade := ParseGrade(`{"score":0.8,"max_score":1.0,"feedback":"good","detected_mistakes":["minor"],"confidence":0.9}`)
	if grade.Score != 0.8 || grade.MaxScore != 1.0 {
		t.Errorf("grade = %+v", grade)
	}
	if len(grade.DetectedMistakes) != 1 {
		t.Errorf("detected mistakes = %v", grade.DetectedMistakes)
	}
}

func TestParseGradeNormalizes(t *testing.T) {
	grade := ParseGrade(`{"score":7,"max_score":5,"confidence":1.4}`)
	if grade.Score != 5 {
		t.Errorf("score clamped to %f, want 5", grade.Score)
	}
	if grade.Confidence != 1 {
		t.Errorf("confidence clamped to %f, want 1", grade.Confidence)
	}

	grade = ParseGrade("not json")
	if grade.Score != 0 || grade.MaxScore != 1 {
		t.Errorf("malformed grade = %+v, want zero score out of 1", grade)
	}
}
