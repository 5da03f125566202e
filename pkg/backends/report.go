package backends

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/caremesh/medgate/pkg/chat"
)

// Diagnosis is the label/confidence pair extracted from a classification.
type Diagnosis struct {
	Label      string  `json:"diagnosis_name"`
	Confidence float64 `json:"confidence"`
}

// ReportRequest is the payload for the report generation backend.
type ReportRequest struct {
	UserID          string         `json:"user_id"`
	ChatID          string         `json:"chat_id"`
	Specialty       string         `json:"speciality"`
	Type            string         `json:"type"`
	History         []chat.Message `json:"history"`
	Diagnosis       Diagnosis      `json:"diagnosis"`
	ImageURL        string         `json:"image_url"`
	CollectedFields map[string]any `json:"metadata"`
}

// ReportResult carries the structured report fields plus the raw downstream
// payload, which is persisted verbatim.
type ReportResult struct {
	Summary   string
	Fields    map[string]any
	Diagnosis Diagnosis
	Raw       map[string]any
}

type reportReply struct {
	Report      map[string]any `json:"report"`
	Diagnosis   *Diagnosis     `json:"diagnosis"`
	Status      string         `json:"status"`
	GeneratedAt string         `json:"generated_at"`
}

// ReportService talks to the report generation backend.
type ReportService struct {
	client *RetryingClient
	url    string
}

func NewReportService(client *RetryingClient, url string) *ReportService {
	return &ReportService{client: client, url: url}
}

// Generate asks the backend to compose the final report from the
// transcript, the diagnosis and the collected patient fields.
func (s *ReportService) Generate(ctx context.Context, req ReportRequest) (*ReportResult, error) {
	req.Type = "report"

	body, err := s.client.PostJSON(ctx, s.url, req)
	if err != nil {
		return nil, err
	}

	var reply reportReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("unmarshal report reply: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal report payload: %w", err)
	}

	result := &ReportResult{
		Fields:    reply.Report,
		Diagnosis: req.Diagnosis,
		Raw:       raw,
	}
	// Prefer the backend's own diagnosis echo when present.
	if reply.Diagnosis != nil {
		result.Diagnosis = *reply.Diagnosis
	}
	if out, ok := reply.Report["output"].(string); ok && out != "" {
		result.Summary = out
	} else {
		result.Summary = "Your report is ready."
	}
	return result, nil
}
