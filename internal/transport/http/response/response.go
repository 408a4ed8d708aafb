package response

import "github.com/gin-gonic/gin"

// Message is the envelope every /servicereq route answers with, except the
// bare ServiceResponse returned on submission.
type Message struct {
	StatusCode int    `json:"statusCode"`
	StatusText string `json:"statusText"`
	Payload    any    `json:"payload"`
}

func New(code int, text string, payload any) Message {
	return Message{StatusCode: code, StatusText: text, Payload: payload}
}

func OK(text string, payload any) Message {
	return New(200, text, payload)
}

// Error builds a payload-less envelope.
func Error(code int, text string) Message {
	return New(code, text, nil)
}

// JSON writes m with its own status code as the HTTP status.
func JSON(c *gin.Context, m Message) {
	c.JSON(m.StatusCode, m)
}

// Abort writes m and stops the handler chain.
func Abort(c *gin.Context, m Message) {
	c.AbortWithStatusJSON(m.StatusCode, m)
}
