package backends

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/caremesh/medgate/pkg/chat"
)

// ClassificationResult is the normalized outcome of a vision call. The
// confidence is the backend's own estimate and must be treated as
// untrusted; callers surfacing it must present it as an estimate.
type ClassificationResult struct {
	IsValidImage bool
	Reason       string
	Label        string
	Confidence   float64
}

type visionRequest struct {
	ImageURL    string `json:"image_url"`
	UserID      string `json:"user_id"`
	ChatID      string `json:"chat_id"`
	ChatType    string `json:"chat_type"`
	MessageType string `json:"message_type"`
}

type visionReply struct {
	IsValid          bool   `json:"is_valid"`
	ValidationReason string `json:"validation_reason"`
	Prediction       *struct {
		PredictedClass string  `json:"predicted_class"`
		Confidence     float64 `json:"confidence"`
	} `json:"prediction_result"`
}

// VisionService talks to the vision/classification backend.
type VisionService struct {
	client *RetryingClient
	url    string
}

func NewVisionService(client *RetryingClient, url string) *VisionService {
	return &VisionService{client: client, url: url}
}

// Classify submits the image reference for the given specialty. A rejected
// image is a normal negative result, not an error; an error means the
// backend itself misbehaved or was unreachable.
func (s *VisionService) Classify(ctx context.Context, turn *chat.Turn) (*ClassificationResult, error) {
	body, err := s.client.PostJSON(ctx, s.url, visionRequest{
		ImageURL:    turn.ImageRef,
		UserID:      turn.UserID,
		ChatID:      turn.ConversationID,
		ChatType:    string(turn.Specialty),
		MessageType: "image",
	})
	if err != nil {
		return nil, err
	}

	var reply visionReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("unmarshal vision reply: %w", err)
	}

	result := &ClassificationResult{
		IsValidImage: reply.IsValid,
		Reason:       reply.ValidationReason,
	}
	if !reply.IsValid {
		return result, nil
	}

	if reply.Prediction == nil {
		return nil, fmt.Errorf("vision backend returned valid image but no prediction result")
	}
	result.Label = reply.Prediction.PredictedClass
	result.Confidence = reply.Prediction.Confidence
	return result, nil
}
