package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"spendlens/internal/core"
	"spendlens/internal/report"
)

// insightList is the body of the insight routes.
type insightList struct {
	UserID   string              `json:"userId"`
	Insights []report.InsightRow `json:"insights"`
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	q, err := parseDashboardQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, "analytics", err)
		return
	}

	d, err := s.analytics.Dashboard(r.Context(), userID, q)
	if err != nil {
		writeError(w, r, "analytics", err)
		return
	}

	doc := report.FromReport(d.Report).WithInsights(d.Insights)
	doc.UserID = d.UserID
	NewJSONResponse().Body(doc).Write(w)
}

func (s *Server) handleGenerateInsights(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	ref, err := parseDateParam(r.URL.Query(), "ref")
	if err != nil {
		writeError(w, r, "generate_insights", err)
		return
	}

	generated, err := s.insights.Generate(r.Context(), userID, ref)
	if err != nil {
		writeError(w, r, "generate_insights", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(newInsightList(userID, generated)).Write(w)
}

func (s *Server) handleListInsights(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	stored, err := s.insights.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, "list_insights", err)
		return
	}
	NewJSONResponse().Body(newInsightList(userID, stored)).Write(w)
}

func newInsightList(userID string, insights []core.Insight) insightList {
	return insightList{
		UserID:   userID,
		Insights: report.Document{}.WithInsights(insights).Insights,
	}
}
