package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromResponseStringDetail(t *testing.T) {
	err := FromResponse(http.StatusConflict, []byte(`{"detail":"Assignment must be in cleaned status to approve"}`))

	assert.Equal(t, ErrConflict.Code, err.Code)
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.Equal(t, "Assignment must be in cleaned status to approve", err.Detail)
	assert.True(t, stdErrors.Is(err, ErrConflict))
}

func TestFromResponseValidationList(t *testing.T) {
	body := []byte(`{"detail":[{"loc":["body","rating"],"msg":"Rating must be between 1 and 5"},{"msg":"field required"}]}`)
	err := FromResponse(http.StatusUnprocessableEntity, body)

	assert.Equal(t, ErrValidation.Code, err.Code)
	assert.Equal(t, "Rating must be between 1 and 5; field required", err.Detail)
}

func TestFromResponseWithoutDetail(t *testing.T) {
	err := FromResponse(http.StatusBadGateway, []byte("<html>bad gateway</html>"))

	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, http.StatusBadGateway, err.Status)
	assert.Empty(t, err.Detail)
}

func TestIsUnauthorized(t *testing.T) {
	assert.True(t, IsUnauthorized(FromResponse(http.StatusUnauthorized, nil)))
	assert.False(t, IsUnauthorized(FromResponse(http.StatusForbidden, nil)))
	assert.False(t, IsUnauthorized(stdErrors.New("boom")))
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(stdErrors.New("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, "internal server error: boom", appErr.Error())
}
