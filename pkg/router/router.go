// Package router drives a validated turn through the text-conversation
// path or the image→classify→report path, maintaining the explicit
// conversation state machine and the transcript record.
package router

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/caremesh/medgate/pkg/backends"
	"github.com/caremesh/medgate/pkg/chat"
	"github.com/caremesh/medgate/pkg/transcript"
)

// TextBackend is the text conversation collaborator.
type TextBackend interface {
	Converse(ctx context.Context, specialty chat.Specialty, req backends.TextRequest) (*backends.TextReply, error)
}

// VisionBackend is the image classification collaborator.
type VisionBackend interface {
	Classify(ctx context.Context, turn *chat.Turn) (*backends.ClassificationResult, error)
}

// ReportBackend is the report generation collaborator.
type ReportBackend interface {
	Generate(ctx context.Context, req backends.ReportRequest) (*backends.ReportResult, error)
}

// Router dispatches validated turns. Conversation progression is an
// explicit state tag persisted with the conversation; transitions are
// validated against the current state instead of being re-derived from
// metadata flags on every call.
type Router struct {
	text   TextBackend
	vision VisionBackend
	report ReportBackend
	store  transcript.Store
	logger *zap.Logger
}

// New creates a Router over the three downstream backends and the
// transcript store.
func New(text TextBackend, vision VisionBackend, report ReportBackend, store transcript.Store, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{text: text, vision: vision, report: report, store: store, logger: logger}
}

// transitionAllowed encodes the state machine:
//
//	collecting_info → ready_for_image → image_submitted → reported
//
// with blocked reachable from anywhere and image submission accepted
// opportunistically from any non-blocked state.
func transitionAllowed(from, to chat.State) bool {
	switch to {
	case chat.StateBlocked:
		return true
	case chat.StateReadyForImage:
		return from == chat.StateCollecting
	case chat.StateImageSubmitted:
		return from != chat.StateBlocked
	case chat.StateReported:
		return from == chat.StateImageSubmitted
	default:
		return false
	}
}

// transition moves the conversation to the target state when the current
// state permits it. An impermissible transition is logged and skipped, not
// treated as a turn failure.
func (r *Router) transition(ctx context.Context, conversationID string, to chat.State) {
	from, err := r.store.State(ctx, conversationID)
	if err != nil {
		r.logger.Warn("could not read conversation state", zap.String("conversation_id", conversationID), zap.Error(err))
		return
	}
	if !transitionAllowed(from, to) {
		r.logger.Warn("state transition rejected",
			zap.String("conversation_id", conversationID),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return
	}
	if err := r.store.SetState(ctx, conversationID, to); err != nil {
		r.logger.Warn("could not persist conversation state", zap.String("conversation_id", conversationID), zap.Error(err))
	}
}

// MarkBlocked records the terminal blocked state after a safety rejection.
func (r *Router) MarkBlocked(ctx context.Context, conversationID string) {
	r.transition(ctx, conversationID, chat.StateBlocked)
}

// Route dispatches the turn to the text or image path. A non-nil error is
// a downstream failure the caller should surface as a 502-equivalent; a
// negative-but-normal outcome (such as a rejected image) is returned as an
// unsuccessful TurnResponse with a nil error.
func (r *Router) Route(ctx context.Context, turn *chat.Turn) (*chat.TurnResponse, error) {
	if turn.Kind == chat.KindImage {
		return r.routeImage(ctx, turn)
	}
	return r.routeText(ctx, turn)
}

func (r *Router) routeText(ctx context.Context, turn *chat.Turn) (*chat.TurnResponse, error) {
	history := make([]chat.Message, len(turn.History))
	copy(history, turn.History)

	// The current message is appended only when the caller didn't already
	// place it at the end of the supplied history; the backend appends it
	// as well, so duplicating it would skew the conversation.
	if len(history) == 0 || history[len(history)-1].Content != turn.Message {
		history = append(history, chat.Message{Role: "user", Content: turn.Message})
	}

	reply, err := r.text.Converse(ctx, turn.Specialty, backends.TextRequest{
		ThreadID: turn.ConversationID,
		Message:  turn.Message,
		History:  history,
	})
	if err != nil {
		return nil, fmt.Errorf("text backend: %w", err)
	}

	// Collected patient fields survive into the image path through the
	// conversation metadata, merged last-write-wins per field.
	if len(reply.CollectedFields) > 0 {
		if err := r.store.MergeMetadata(ctx, turn.ConversationID, reply.CollectedFields); err != nil {
			r.logger.Warn("could not persist collected fields",
				zap.String("conversation_id", turn.ConversationID), zap.Error(err))
		}
	}

	if reply.ShouldRequestImage {
		r.transition(ctx, turn.ConversationID, chat.StateReadyForImage)
	}

	return chat.OK(turn.ConversationID, reply.Response, "text", map[string]any{
		"thread_id":            reply.ThreadID,
		"information_complete": reply.InformationComplete,
		"should_request_image": reply.ShouldRequestImage,
		"ready_for_images":     reply.ShouldRequestImage,
		"collected_info":       reply.CollectedFields,
		"api_calls":            reply.APICalls,
	}), nil
}

func (r *Router) routeImage(ctx context.Context, turn *chat.Turn) (*chat.TurnResponse, error) {
	classification, err := r.vision.Classify(ctx, turn)
	if err != nil {
		return nil, fmt.Errorf("vision backend: %w", err)
	}

	if !classification.IsValidImage {
		// A rejected image is a normal negative result: the conversation
		// stays in its current state and the user may retry.
		return chat.Err(turn.ConversationID,
			fmt.Sprintf("Invalid image: %s", classification.Reason),
			"invalid_image",
			map[string]any{
				"validation_reason": classification.Reason,
				"error_type":        "image_validation_failed",
			}), nil
	}

	diagnosis := backends.Diagnosis{
		Label:      classification.Label,
		Confidence: classification.Confidence,
	}

	// Snapshot the collected fields before recording the classification so
	// the report request carries only patient-provided data.
	collected, err := r.store.Metadata(ctx, turn.ConversationID)
	if err != nil {
		r.logger.Warn("could not fetch collected fields",
			zap.String("conversation_id", turn.ConversationID), zap.Error(err))
		collected = map[string]any{}
	}

	r.transition(ctx, turn.ConversationID, chat.StateImageSubmitted)

	r.logger.Info("image classified",
		zap.String("conversation_id", turn.ConversationID),
		zap.String("specialty", string(turn.Specialty)),
		zap.String("label", diagnosis.Label),
		zap.Float64("confidence", diagnosis.Confidence),
	)

	result, err := r.report.Generate(ctx, backends.ReportRequest{
		UserID:          turn.UserID,
		ChatID:          turn.ConversationID,
		Specialty:       string(turn.Specialty),
		History:         turn.History,
		Diagnosis:       diagnosis,
		ImageURL:        turn.ImageRef,
		CollectedFields: collected,
	})
	if err != nil {
		// The classification stands: the conversation remains in
		// image_submitted so report generation can be retried without
		// re-submitting the image.
		return nil, fmt.Errorf("report backend: %w", err)
	}

	r.transition(ctx, turn.ConversationID, chat.StateReported)

	// Confidence is the classifier's own estimate; every propagated copy
	// is tagged as such.
	diagnosisRecord := map[string]any{
		"label":                result.Diagnosis.Label,
		"confidence":           result.Diagnosis.Confidence,
		"confidence_estimated": true,
	}

	record := map[string]any{
		"diagnosis":            diagnosisRecord,
		"report":               result.Fields,
		"full_report_response": result.Raw,
	}
	if err := r.store.SaveReport(ctx, turn.ConversationID, record); err != nil {
		r.logger.Warn("could not persist report",
			zap.String("conversation_id", turn.ConversationID), zap.Error(err))
	}

	return chat.OK(turn.ConversationID, result.Summary, "report", map[string]any{
		"diagnosis":         diagnosisRecord,
		"report":            result.Fields,
		"speciality":        string(turn.Specialty),
		"message_state":     "COMPLETED",
		"ready_for_images":  false,
		"validation_reason": classification.Reason,
	}), nil
}
