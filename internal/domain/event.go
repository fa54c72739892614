package domain

// Event types delivered to clients over the persistent connection.
const (
	EventProcessingStatus = "processing_status"
	EventProcessComplete  = "process_complete"
	EventError            = "error"
	EventBroadcast        = "broadcast"
)

// Pipeline stage names carried in the status field of progress events.
// Consumers rely on these progressing monotonically within one run.
const (
	StageStarted            = "started"
	StageFetchingProduct    = "fetching_product"
	StageRemovingBackground = "removing_background"
	StageGeneratingPrompt   = "generating_prompt"
	StagePromptGenerated    = "prompt_generated"
	StageError              = "error"
	StageSuccess            = "success"
)

// ProgressEvent is a single message pushed to a client. Events are immutable
// once emitted.
type ProgressEvent struct {
	Type      string `json:"type"`
	Status    string `json:"status,omitempty"`
	Message   string `json:"message,omitempty"`
	ProductID string `json:"product_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// StatusEvent builds a processing_status event for a stage transition.
func StatusEvent(stage, message, productID string) ProgressEvent {
	return ProgressEvent{
		Type:      EventProcessingStatus,
		Status:    stage,
		Message:   message,
		ProductID: productID,
	}
}

// ErrorEvent builds the terminal error event for a failed run.
func ErrorEvent(message, productID string) ProgressEvent {
	return ProgressEvent{
		Type:      EventProcessingStatus,
		Status:    StageError,
		Message:   message,
		ProductID: productID,
	}
}

// CompleteEvent builds the terminal event carrying the run's result payload.
func CompleteEvent(message, productID string, data any) ProgressEvent {
	return ProgressEvent{
		Type:      EventProcessingStatus,
		Status:    StageSuccess,
		Message:   message,
		ProductID: productID,
		Data:      data,
	}
}
