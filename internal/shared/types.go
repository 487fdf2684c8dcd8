package shared

// ExtractionRequest is the body of POST /ollama.
type ExtractionRequest struct {
	HTML    string `json:"html"`
	Message string `json:"message"`
	Model   string `json:"model"`
}

type ExtractionResponse struct {
	Response string `json:"response"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type ModelsResponse struct {
	Models []string `json:"models"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
