package dto

import "github.com/noah-isme/sma-assessment-api/internal/models"

// DueSoonResponse counts items awaiting submission per forward window.
type DueSoonResponse struct {
	Within24Hours int `json:"24hours"`
	WithinWeek    int `json:"week"`
	WithinMonth   int `json:"month"`
}

// SummaryResponse reports submission and marking counts.
type SummaryResponse struct {
	Submitted int `json:"sub_assess"`
	ToSubmit  int `json:"tobe_sub"`
	Overdue   int `json:"overdue"`
	Marked    int `json:"assess_marked"`
}

// NewSummaryResponse maps aggregated counts onto the response shape.
func NewSummaryResponse(stats models.SummaryStats) *SummaryResponse {
	return &SummaryResponse{
		Submitted: stats.Submitted,
		ToSubmit:  stats.ToSubmit,
		Overdue:   stats.Overdue,
		Marked:    stats.Marked,
	}
}

// SummaryByTypeResponse carries the serialized per-type chart.
type SummaryByTypeResponse struct {
	Result string `json:"result"`
}
