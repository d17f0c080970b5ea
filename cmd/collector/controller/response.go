package controller

import (
	"time"

	"github.com/nezhahq/sysmon/model"
)

type IngestResponse struct {
	Status     string    `json:"status"`
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"received_at"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// ReportResponse answers a manual report trigger. Status is one of sent,
// already_sent, skipped or failed.
type ReportResponse struct {
	Status     string           `json:"status"`
	Kind       model.ReportKind `json:"kind"`
	PeriodKey  string           `json:"period_key"`
	Recipients int              `json:"recipients"`
	Message    string           `json:"message"`
}
