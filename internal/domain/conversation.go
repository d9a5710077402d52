package domain

// Role of a conversation turn
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in the chat transcript
type Turn struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content" binding:"required"`
}

// ChatRequest represents a customer chat message
type ChatRequest struct {
	Message         string   `json:"message" binding:"required"`
	History         []Turn   `json:"history,omitempty"`
	PreviouslyShown []string `json:"previouslyShown,omitempty"`
}

// ScanRequest represents a photo of a cigar band to identify
type ScanRequest struct {
	Image           string   `json:"image" binding:"required"` // base64, optionally a data URL
	MimeType        string   `json:"mimeType,omitempty"`
	PreviouslyShown []string `json:"previouslyShown,omitempty"`
}

// AssistantResponse is the JSON body returned by chat and scan
type AssistantResponse struct {
	Message    string         `json:"message"`
	Cigars     []DisplayCigar `json:"cigars"`
	Confidence *int           `json:"confidence,omitempty"`
	State      string         `json:"state,omitempty"` // scan only
}

// Image is an inline image handed to a vision model
type Image struct {
	MimeType string
	Data     string // base64 without data URL prefix
}

// ModelRequest is a single prompt to the upstream language/vision model
type ModelRequest struct {
	System    string
	Messages  []Turn
	Images    []Image
	MaxTokens int
}
