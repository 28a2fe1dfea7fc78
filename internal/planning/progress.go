// Package planning は授業計画の純粋な計算ロジックを提供する。
//
// 進捗率の集計と学期カレンダーの日付生成、表示用の時間・日付フォーマットを含む。
// いずれの関数もI/Oを行わず、引数のスナップショットのみから決定的な結果を返す。
// エラーは返さず、不正な入力は0件・0分として扱う。
package planning

import "math"

// LessonDuration は進捗計算に必要な授業の情報。
type LessonDuration struct {
	ComponentID     string
	DurationMinutes int
}

// Progress はコンポーネントの進捗を表す。永続化はしない。
type Progress struct {
	CompletedMinutes int
	TotalMinutes     int
	Percentage       float64 // 0-100
}

// ComputeProgress はコンポーネントの計画時間（時間単位）と授業一覧から進捗を算出する。
// componentIDに一致する授業のみを集計し、負の時間は0分として扱う。
// 計画時間を超過した場合もPercentageは100で頭打ちになる。
func ComputeProgress(workloadHours float64, componentID string, lessons []LessonDuration) Progress {
	total := HoursToMinutes(workloadHours)

	completed := 0
	if componentID != "" {
		for _, l := range lessons {
			if l.ComponentID != componentID || l.DurationMinutes <= 0 {
				continue
			}
			completed = addMinutes(completed, l.DurationMinutes)
		}
	}

	p := Progress{
		CompletedMinutes: completed,
		TotalMinutes:     total,
	}
	if total > 0 {
		p.Percentage = math.Min(100, float64(completed)/float64(total)*100)
	}
	return p
}

// ComponentWorkload は一覧表示で進捗をまとめて計算するための入力。
type ComponentWorkload struct {
	ID            string
	WorkloadHours float64
}

// ComputeProgressByComponent は複数コンポーネントの進捗をまとめて算出する。
// 授業一覧は1回だけ走査する。
func ComputeProgressByComponent(components []ComponentWorkload, lessons []LessonDuration) map[string]Progress {
	completed := make(map[string]int, len(components))
	for _, l := range lessons {
		if l.ComponentID == "" || l.DurationMinutes <= 0 {
			continue
		}
		completed[l.ComponentID] = addMinutes(completed[l.ComponentID], l.DurationMinutes)
	}

	result := make(map[string]Progress, len(components))
	for _, c := range components {
		total := HoursToMinutes(c.WorkloadHours)
		p := Progress{CompletedMinutes: completed[c.ID], TotalMinutes: total}
		if total > 0 {
			p.Percentage = math.Min(100, float64(p.CompletedMinutes)/float64(total)*100)
		}
		result[c.ID] = p
	}
	return result
}

// addMinutes はmath.MaxIntで頭打ちにする加算。a, bは非負であること。
func addMinutes(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}
