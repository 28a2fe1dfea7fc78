package planning

import (
	"sort"
	"time"

	"github.com/teambition/rrule-go"
)

// RecurrenceMode は週ごとの曜日展開方法を表す。
type RecurrenceMode string

const (
	// ModeOffset は開始日から7日×週番号を進め、開始日の曜日との差分だけずらす方式。
	// 週の先頭への再アンカーは行わないため、開始日より前の日付になることがある。
	ModeOffset RecurrenceMode = "offset"
	// ModeForward は開始日以降で最も近い該当曜日から展開する方式。
	ModeForward RecurrenceMode = "forward"
)

// Valid は展開方式が定義済みの値かを返す。空文字はModeOffsetとして扱う。
func (m RecurrenceMode) Valid() bool {
	switch m {
	case "", ModeOffset, ModeForward:
		return true
	}
	return false
}

// DefaultWeekdays は曜日指定が省略された場合の既定値（月・水・金）。
var DefaultWeekdays = []int{1, 3, 5}

// CalendarRequest はカレンダー生成の入力。
// Weekdaysは0=日曜日〜6=土曜日。
type CalendarRequest struct {
	StartDate time.Time
	Weeks     int
	Weekdays  []int
	Holidays  []time.Time
	Mode      RecurrenceMode
}

// GenerateCalendar は週数と曜日の指定から授業日を生成する。
// 休日に該当する日付は振替せずに除外する。
// ModeOffsetでは生成順（週→指定曜日の順）をそのまま返し、重複排除や並べ替えは行わない。
func GenerateCalendar(req CalendarRequest) []time.Time {
	if req.Weeks <= 0 || len(req.Weekdays) == 0 {
		return []time.Time{}
	}

	holidays := make(map[dayKey]struct{}, len(req.Holidays))
	for _, h := range req.Holidays {
		holidays[keyOf(h)] = struct{}{}
	}

	if req.Mode == ModeForward {
		return generateForward(req, holidays)
	}

	start := req.StartDate
	startWeekday := int(start.Weekday())
	dates := make([]time.Time, 0, req.Weeks*len(req.Weekdays))
	for w := 0; w < req.Weeks; w++ {
		for _, d := range req.Weekdays {
			date := start.AddDate(0, 0, w*7+(d-startWeekday))
			if _, skip := holidays[keyOf(date)]; skip {
				continue
			}
			dates = append(dates, date)
		}
	}
	return dates
}

// rruleWeekdays はtime.Weekdayの値をrruleの曜日に対応付ける。
var rruleWeekdays = []rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// generateForward はRRULE（FREQ=WEEKLY;BYDAY=...）で開始日から weeks 週分の授業日を展開する。
// 範囲外の曜日は無視し、結果は日付順になる。
func generateForward(req CalendarRequest, holidays map[dayKey]struct{}) []time.Time {
	seen := make(map[int]bool, len(req.Weekdays))
	var byDay []rrule.Weekday
	for _, d := range req.Weekdays {
		if d < 0 || d > 6 || seen[d] {
			continue
		}
		seen[d] = true
		byDay = append(byDay, rruleWeekdays[d])
	}
	if len(byDay) == 0 {
		return []time.Time{}
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   req.StartDate,
		Byweekday: byDay,
	})
	if err != nil {
		return []time.Time{}
	}

	end := req.StartDate.AddDate(0, 0, req.Weeks*7).Add(-time.Nanosecond)
	occurrences := rule.Between(req.StartDate, end, true)

	dates := make([]time.Time, 0, len(occurrences))
	for _, o := range occurrences {
		if _, skip := holidays[keyOf(o)]; skip {
			continue
		}
		dates = append(dates, o)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// dayKey は時刻を無視した暦日の同一性を表す。
type dayKey struct {
	year  int
	month time.Month
	day   int
}

func keyOf(t time.Time) dayKey {
	y, m, d := t.Date()
	return dayKey{year: y, month: m, day: d}
}

// SameDay は2つの時刻が同じ暦日かを返す。
func SameDay(a, b time.Time) bool {
	return keyOf(a) == keyOf(b)
}
