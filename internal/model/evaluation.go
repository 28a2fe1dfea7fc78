package model

import "time"

// EvaluationType は評価の種別を表す。
type EvaluationType string

const (
	EvaluationExam          EvaluationType = "exam"
	EvaluationAssignment    EvaluationType = "assignment"
	EvaluationProject       EvaluationType = "project"
	EvaluationPresentation  EvaluationType = "presentation"
	EvaluationQuiz          EvaluationType = "quiz"
	EvaluationParticipation EvaluationType = "participation"
)

// Valid は種別が定義済みの値かを返す。
func (t EvaluationType) Valid() bool {
	switch t {
	case EvaluationExam, EvaluationAssignment, EvaluationProject,
		EvaluationPresentation, EvaluationQuiz, EvaluationParticipation:
		return true
	}
	return false
}

// MaxEvaluationWeight はコンポーネントごとの評価比重の合計上限。
const MaxEvaluationWeight = 100

// Evaluation はコンポーネントに紐づく評価（試験・課題など）を表す。
type Evaluation struct {
	ID          string
	UserID      string
	ComponentID string
	Title       string
	Type        EvaluationType
	Date        *time.Time
	Weight      int // 0-100
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EvaluationSummary はコンポーネント単位の評価比重の集計結果。
type EvaluationSummary struct {
	ComponentID     string
	TotalWeight     int
	RemainingWeight int
	CountByType     map[EvaluationType]int
}
