package chat

// State is the explicit conversation progression tag stored alongside the
// conversation record. Transitions are validated against the current state
// by the router rather than re-derived from metadata flags.
type State string

const (
	// StateCollecting is the initial state: the text backend is still
	// gathering symptom information from the user.
	StateCollecting State = "collecting_info"

	// StateReadyForImage means the text backend has asked the user to
	// submit an image.
	StateReadyForImage State = "ready_for_image"

	// StateImageSubmitted means a valid image was classified but the final
	// report has not been generated yet. Report generation can be retried
	// from here without re-submitting the image.
	StateImageSubmitted State = "image_submitted"

	// StateReported is the terminal happy-path state.
	StateReported State = "reported"

	// StateBlocked is reachable from any state when the safety pipeline
	// rejects a turn.
	StateBlocked State = "blocked"
)
