package handler

// Response is the envelope every portal endpoint renders. Patient-facing
// clients only branch on Status; Message carries the safe-to-display text.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

// NewErrorResponse wraps a message the patient may see. Internal error
// detail stays in the logs, never in the envelope.
func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}
