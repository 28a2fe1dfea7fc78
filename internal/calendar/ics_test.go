package calendar

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"

	"github.com/hitoshi/planneredu/internal/locale"
	"github.com/hitoshi/planneredu/internal/model"
)

func testLocale(t *testing.T, tag string) *locale.Locale {
	t.Helper()
	reg, err := locale.NewRegistry("pt-BR")
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg.Get(tag)
}

func decodeICS(t *testing.T, data []byte) *ical.Calendar {
	t.Helper()
	cal, err := ical.NewDecoder(bytes.NewReader(data)).Decode()
	if err != nil {
		t.Fatalf("decode ICS: %v\n%s", err, data)
	}
	return cal
}

func propText(t *testing.T, props ical.Props, name string) string {
	t.Helper()
	p := props.Get(name)
	if p == nil {
		t.Fatalf("property %s is missing", name)
	}
	v, err := p.Text()
	if err != nil {
		t.Fatalf("property %s: %v", name, err)
	}
	return v
}

func TestService_ExportICS(t *testing.T) {
	svc, d := newTestService()
	d.components.components["comp-1"].Dates = []time.Time{day(2024, 3, 4), day(2024, 3, 6), day(2024, 3, 4)}
	d.lessons.lessons = []*model.Lesson{
		{ID: "l-1", UserID: "teacher-1", ComponentID: "comp-1", Title: "Frações, parte 1", Date: day(2024, 3, 4), DurationMinutes: 50},
	}

	data, err := svc.ExportICS(context.Background(), "teacher-1", "comp-1", testLocale(t, "pt-BR"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.lessons.lastFilter.ComponentID != "comp-1" {
		t.Errorf("lesson filter = %+v", d.lessons.lastFilter)
	}
	if d.metrics.exports != 1 {
		t.Errorf("exports = %d, want 1", d.metrics.exports)
	}

	cal := decodeICS(t, data)
	if got := propText(t, cal.Props, ical.PropProductID); got != icsProductID {
		t.Errorf("PRODID = %q", got)
	}
	if got := propText(t, cal.Props, propCalName); got != "Cronograma: Matemática" {
		t.Errorf("X-WR-CALNAME = %q", got)
	}

	events := cal.Events()
	if len(events) != 4 {
		t.Fatalf("events = %d, want 4 (3 dates + 1 lesson)", len(events))
	}

	uids := map[string]bool{}
	for _, e := range events {
		uids[propText(t, e.Props, ical.PropUID)] = true

		start := e.Props.Get(ical.PropDateTimeStart)
		if start == nil || start.ValueType() != ical.ValueDate {
			t.Errorf("DTSTART must be an all-day date: %+v", start)
		}
	}
	if len(uids) != 4 {
		t.Errorf("UIDs must be unique even for duplicated dates: %v", uids)
	}

	if got := propText(t, events[0].Props, ical.PropSummary); got != "Aula de Matemática" {
		t.Errorf("first SUMMARY = %q", got)
	}
	lesson := events[3]
	if got := propText(t, lesson.Props, ical.PropSummary); got != "Frações, parte 1" {
		t.Errorf("lesson SUMMARY = %q", got)
	}
	if got := propText(t, lesson.Props, ical.PropDescription); got != "50min" {
		t.Errorf("lesson DESCRIPTION = %q", got)
	}
	if got := lesson.Props.Get(ical.PropDateTimeStart).Value; got != "20240304" {
		t.Errorf("lesson DTSTART = %q", got)
	}
}

func TestService_ExportICS_English(t *testing.T) {
	svc, d := newTestService()
	d.components.components["comp-1"].Dates = []time.Time{day(2024, 3, 4)}

	data, err := svc.ExportICS(context.Background(), "teacher-1", "comp-1", testLocale(t, "en"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cal := decodeICS(t, data)
	if got := propText(t, cal.Props, propCalName); got != "Schedule: Matemática" {
		t.Errorf("X-WR-CALNAME = %q", got)
	}
	if got := propText(t, cal.Events()[0].Props, ical.PropSummary); got != "Matemática class" {
		t.Errorf("SUMMARY = %q", got)
	}
}

func TestService_ExportICS_EmptyCalendarIsStillValid(t *testing.T) {
	svc, d := newTestService()
	d.components.components["comp-1"].Name = "Física; turma A"

	data, err := svc.ExportICS(context.Background(), "teacher-1", "comp-1", testLocale(t, "pt-BR"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := string(data)
	for _, want := range []string{
		"BEGIN:VCALENDAR\r\n",
		"VERSION:2.0\r\n",
		"PRODID:" + icsProductID + "\r\n",
		`X-WR-CALNAME:Cronograma: Física\; turma A` + "\r\n",
		"END:VCALENDAR\r\n",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("ICS missing %q:\n%s", want, s)
		}
	}
	if strings.Contains(s, "BEGIN:VEVENT") {
		t.Error("empty calendar must not contain events")
	}
	if d.metrics.exports != 1 {
		t.Errorf("exports = %d, want 1", d.metrics.exports)
	}
}

func TestService_ExportICS_OtherUserIsNotFound(t *testing.T) {
	svc, d := newTestService()

	_, err := svc.ExportICS(context.Background(), "teacher-1", "comp-2", testLocale(t, "pt-BR"))
	assertAPIErrorCode(t, err, model.ErrCodeComponentNotFound)
	if d.metrics.exports != 0 {
		t.Error("failed export must not be recorded")
	}
}
