package ai

import "fmt"

const quizSystemPrompt = `You are a tutor generating quiz questions from study material.
Respond with a single JSON object, no prose and no markdown fences:
{"questions":[{"prompt":"...","question_type":"multiple_choice|true_false|open_text|ordering|multiple_select|matching","choices":["..."],"correct_answer":"...","explanation":"..."}]}
List answers join items with "|"; matching pairs use "left=right".
Questions must be answerable from the supplied material alone.`

const gradeSystemPrompt = `You grade a learner's answer against the supplied context.
Respond with a single JSON object, no prose and no markdown fences:
{"score":0.0,"max_score":1.0,"feedback":"...","detected_mistakes":["..."],"confidence":0.0}
Score generously for partially correct answers; confidence is your own certainty in the grade.`

const ocrPrompt = `Transcribe all text visible in this document. Preserve reading order and line breaks. Output only the transcribed text.`

func BuildQuizPrompt(content string, count int, difficulty string) string {
	return fmt.Sprintf(
		"Generate %d %s-level quiz questions from the following material.\n\n---\n%s\n---",
		count, difficulty, content,
	)
}

func BuildGradePrompt(question, rubric, answer string) string {
	return fmt.Sprintf(
		"Question:\n%s\n\nReference context / rubric:\n%s\n\nLearner's answer:\n%s",
		question, rubric, answer,
	)
}
