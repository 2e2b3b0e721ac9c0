package model

// DailyVisits is the visit count for one day.
type DailyVisits struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// UserActivity is the action count for one user.
type UserActivity struct {
	UserID  string `json:"user_id"`
	Actions int    `json:"actions"`
}

// PopularContent is a content item ranked by views.
type PopularContent struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Views int    `json:"views"`
}

// Analytics is the read-only aggregate produced by the data service.
type Analytics struct {
	DailyVisits    []DailyVisits    `json:"daily_visits"`
	UserActivity   []UserActivity   `json:"user_activity"`
	PopularContent []PopularContent `json:"popular_content"`
}

// AnalyticsSummary holds the figures shown on the dashboard.
type AnalyticsSummary struct {
	TotalVisits  int `json:"total_visits"`
	ActiveUsers  int `json:"active_users"`
	PopularCount int `json:"popular_count"`
	TotalViews   int `json:"total_views"`
}

// Summarize computes the dashboard figures without touching the network.
func (a *Analytics) Summarize() AnalyticsSummary {
	s := AnalyticsSummary{
		ActiveUsers:  len(a.UserActivity),
		PopularCount: len(a.PopularContent),
	}
	for _, d := range a.DailyVisits {
		s.TotalVisits += d.Count
	}
	for _, p := range a.PopularContent {
		s.TotalViews += p.Views
	}
	return s
}
