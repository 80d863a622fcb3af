package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"budgetbook/internal/expense"
	"budgetbook/internal/models"
)

// ViewAnalysis renders the chart page. Data is fetched by the browser from AnalysisData.
func (h *Handlers) ViewAnalysis(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "view_analysis.html", map[string]any{
		"Periods": []models.Granularity{models.Day, models.Week, models.Month, models.Year},
	})
}

type chartData struct {
	Labels  []string  `json:"labels"`
	Amounts []float64 `json:"amounts"`
}

type analysisResponse struct {
	LineChart      chartData `json:"line_chart"`
	CategoryCharts chartData `json:"category_charts"`
}

// AnalysisData returns the time series and category breakdown as JSON.
func (h *Handlers) AnalysisData(w http.ResponseWriter, r *http.Request) {
	id, _ := GetIdentityFromContext(r)

	g, err := expense.ParseGranularity(r.URL.Query().Get("time_period"))
	if err != nil {
		g = models.Day
	}

	a, err := h.expenses.SeriesAndBreakdown(r.Context(), id.Email, g)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to load analysis",
			slog.String("user", id.Email), slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to load analysis data"})
		return
	}

	resp := analysisResponse{
		LineChart:      chartData{Labels: []string{}, Amounts: []float64{}},
		CategoryCharts: chartData{Labels: []string{}, Amounts: []float64{}},
	}
	for _, p := range a.Series {
		resp.LineChart.Labels = append(resp.LineChart.Labels, p.Period)
		resp.LineChart.Amounts = append(resp.LineChart.Amounts, p.Total.InexactFloat64())
	}
	for _, c := range a.Breakdown {
		resp.CategoryCharts.Labels = append(resp.CategoryCharts.Labels, c.Category)
		resp.CategoryCharts.Amounts = append(resp.CategoryCharts.Amounts, c.Total.InexactFloat64())
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
