package scoring

import (
	"math"
	"sort"

	"github.com/gokatarajesh/quiz-results/internal/quiz"
)

// QuestionOutcome is the per-question breakdown stored with an attempt.
type QuestionOutcome struct {
	QuestionID     string   `json:"question_id"`
	SelectedIDs    []string `json:"submitted_answer_ids"`
	CorrectIDs     []string `json:"correct_answer_ids"`
	FullyCorrect   bool     `json:"correct"`
	PointsEarned   float64  `json:"points_earned"`
	PointsPossible int      `json:"points_possible"`
	CorrectCount   int      `json:"correct_count"`
	WrongCount     int      `json:"wrong_count"`
}

// Outcome is the result of scoring one submission against one quiz.
type Outcome struct {
	TotalScore float64
	MaxScore   int
	Breakdown  []QuestionOutcome
	// Degenerate lists questions that had no correct answer and were scored as zero.
	Degenerate []string
	// BadIDs lists question ids that were empty or repeated within the quiz.
	BadIDs []string
}

// Answers maps a question id to the set of selected answer ids.
type Answers map[string]map[string]struct{}

// Selection is one submitted (question, answers) pair.
type Selection struct {
	QuestionID string
	AnswerIDs  []string
}

// NewAnswers folds an ordered selection list into Answers.
// Repeated question ids are merged.
func NewAnswers(selections []Selection) Answers {
	out := make(Answers, len(selections))
	for _, s := range selections {
		set, ok := out[s.QuestionID]
		if !ok {
			set = make(map[string]struct{}, len(s.AnswerIDs))
			out[s.QuestionID] = set
		}
		for _, id := range s.AnswerIDs {
			set[id] = struct{}{}
		}
	}
	return out
}

// Score applies partial credit with an optional per-wrong-selection penalty.
//
// Each question contributes points/|correct| per correct selection, minus
// penalty per wrong selection, floored at zero. Questions missing from the
// submission score zero; answers for unknown questions are ignored.
// Neither input is mutated.
func Score(q quiz.Quiz, answers Answers) Outcome {
	out := Outcome{Breakdown: make([]QuestionOutcome, 0, len(q.Questions))}
	var total float64
	seen := make(map[string]struct{}, len(q.Questions))

	for _, question := range q.Questions {
		out.MaxScore += question.Points
		if _, dup := seen[question.ID]; dup || question.ID == "" {
			out.BadIDs = append(out.BadIDs, question.ID)
		}
		seen[question.ID] = struct{}{}

		correctIDs := question.CorrectAnswerIDs()
		correctSet := make(map[string]struct{}, len(correctIDs))
		for _, id := range correctIDs {
			correctSet[id] = struct{}{}
		}

		selected := answers[question.ID]
		var correctSelected, wrongSelected int
		for id := range selected {
			if _, ok := correctSet[id]; ok {
				correctSelected++
			} else {
				wrongSelected++
			}
		}

		earned := 0.0
		if len(correctSet) == 0 {
			out.Degenerate = append(out.Degenerate, question.ID)
		} else {
			perCorrect := float64(question.Points) / float64(len(correctSet))
			earned = float64(correctSelected) * perCorrect
			if question.PenaltyPoints > 0 {
				earned -= float64(wrongSelected) * question.PenaltyPoints
			}
			earned = math.Max(0, earned)
		}
		total += earned

		out.Breakdown = append(out.Breakdown, QuestionOutcome{
			QuestionID:     question.ID,
			SelectedIDs:    sortedKeys(selected),
			CorrectIDs:     correctIDs,
			FullyCorrect:   wrongSelected == 0 && correctSelected == len(correctSet),
			PointsEarned:   Round2(earned),
			PointsPossible: question.Points,
			CorrectCount:   correctSelected,
			WrongCount:     wrongSelected,
		})
	}

	out.TotalScore = Round2(total)
	return out
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
