package handler

import (
	"math"
	"net/http"
	"strconv"

	"github.com/hitoshi/planneredu/internal/model"
	"github.com/hitoshi/planneredu/internal/planning"
)

type durationResponse struct {
	Minutes      int     `json:"minutes"`
	Hours        int     `json:"hours"`
	Remainder    int     `json:"remainder_minutes"`
	DecimalHours float64 `json:"decimal_hours"`
	Label        string  `json:"label"`
}

// FormatDuration は分数を時間と分に分解した表示を返す。
// GET /api/format/duration?minutes=N
func FormatDuration(w http.ResponseWriter, r *http.Request) {
	minutes, err := strconv.Atoi(r.URL.Query().Get("minutes"))
	if err != nil || minutes < 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError([]string{"minutes must be a non-negative integer"}))
		return
	}

	d := planning.SplitMinutes(minutes)
	writeJSON(w, http.StatusOK, durationResponse{
		Minutes:      minutes,
		Hours:        d.Hours,
		Remainder:    d.Minutes,
		DecimalHours: math.Round(planning.MinutesToHours(minutes)*100) / 100,
		Label:        d.String(),
	})
}
