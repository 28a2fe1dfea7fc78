package calendar

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/hitoshi/planneredu/internal/locale"
	"github.com/hitoshi/planneredu/internal/model"
)

const (
	icsProductID = "-//PlannerEdu//Lesson Planner//EN"
	icsDomain    = "planneredu"
	icsDateStamp = "20060102"

	propCalName = "X-WR-CALNAME"
)

var icsTextEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)

// ExportICS はコンポーネントの授業予定日と授業をiCalendar形式で出力する。
// 予定日・授業はいずれも終日イベント（DTSTARTのVALUE=DATE）になる。
func (s *Service) ExportICS(ctx context.Context, userID, componentID string, loc *locale.Locale) ([]byte, error) {
	c, err := s.ownedComponent(ctx, userID, componentID)
	if err != nil {
		return nil, err
	}
	lessons, err := s.lessonRepo.List(ctx, userID, model.LessonFilter{ComponentID: componentID})
	if err != nil {
		return nil, fmt.Errorf("授業一覧の取得に失敗しました: %w", err)
	}

	calName := loc.Message(locale.MsgCalendarName, map[string]any{"Component": c.Name})
	data, err := encodeICS(c, lessons, calName, loc, s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.metrics.RecordICSExport()
	return data, nil
}

func encodeICS(c *model.Component, lessons []*model.Lesson, calName string, loc *locale.Locale, now time.Time) ([]byte, error) {
	if len(c.Dates) == 0 && len(lessons) == 0 {
		// go-icalは子コンポーネントのないVCALENDARをエンコードできない
		return emptyICS(calName), nil
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, icsProductID)
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")
	cal.Props.SetText(propCalName, calName)

	classDay := loc.Message(locale.MsgClassDay, map[string]any{"Component": c.Name})
	for i, d := range c.Dates {
		uid := fmt.Sprintf("%s-%d-%s@%s", c.ID, i, d.Format(icsDateStamp), icsDomain)
		cal.Children = append(cal.Children, allDayEvent(uid, classDay, "", d, now).Component)
	}
	for _, l := range lessons {
		desc := ""
		if l.DurationMinutes > 0 {
			desc = loc.FormatDuration(l.DurationMinutes)
		}
		uid := fmt.Sprintf("%s@%s", l.ID, icsDomain)
		cal.Children = append(cal.Children, allDayEvent(uid, l.Title, desc, l.Date, now).Component)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("iCalendarのエンコードに失敗しました: %w", err)
	}
	return buf.Bytes(), nil
}

func allDayEvent(uid, summary, description string, day, now time.Time) *ical.Event {
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, uid)
	event.Props.SetDateTime(ical.PropDateTimeStamp, now)
	event.Props.SetText(ical.PropSummary, summary)
	if description != "" {
		event.Props.SetText(ical.PropDescription, description)
	}

	start := ical.NewProp(ical.PropDateTimeStart)
	start.SetDate(dayOf(day))
	event.Props.Set(start)
	return event
}

func emptyICS(calName string) []byte {
	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	b.WriteString("PRODID:" + icsProductID + "\r\n")
	b.WriteString("CALSCALE:GREGORIAN\r\n")
	b.WriteString(propCalName + ":" + icsTextEscaper.Replace(calName) + "\r\n")
	b.WriteString("END:VCALENDAR\r\n")
	return []byte(b.String())
}
