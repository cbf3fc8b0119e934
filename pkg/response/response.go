package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/cleanops-client/pkg/errors"
)

// ErrorBody is the error contract: detail is a string, or a list of field
// items for validation failures.
type ErrorBody struct {
	Detail interface{} `json:"detail"`
}

// FieldDetail is one validation item.
type FieldDetail struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// MessageBody acknowledges a state change.
type MessageBody struct {
	Message string `json:"message"`
}

// FieldMessager renders a single validator field error.
type FieldMessager func(validator.FieldError) string

// JSON sends a success response as is.
func JSON(c *gin.Context, status int, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, data)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data)
}

// Message responds 200 with a {"message": ...} acknowledgement.
func Message(c *gin.Context, message string) {
	JSON(c, http.StatusOK, MessageBody{Message: message})
}

// Error sends an error response. Validation failures carrying validator
// field errors are rendered as a list when fieldMsg is given.
func Error(c *gin.Context, err error, fieldMsg ...FieldMessager) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")

	var fieldErrs validator.ValidationErrors
	if len(fieldMsg) > 0 && fieldMsg[0] != nil && errors.As(err, &fieldErrs) {
		items := make([]FieldDetail, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			items = append(items, FieldDetail{
				Loc:  []string{"body", fe.Field()},
				Msg:  fieldMsg[0](fe),
				Type: "value_error." + fe.Tag(),
			})
		}
		c.JSON(appErr.Status, ErrorBody{Detail: items})
		return
	}

	detail := appErr.Detail
	if detail == "" {
		detail = appErr.Message
	}
	status := appErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.JSON(status, ErrorBody{Detail: detail})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
