package error

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenericErrors_StatusAndCode(t *testing.T) {
	cases := []struct {
		err        GenericError
		wantStatus int
		wantCode   string
	}{
		{ValidationError("bad input"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{UnauthorizedError("no key"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{ConflictError("exists"), http.StatusConflict, "CONFLICT"},
		{UnprocessableError("nope"), http.StatusUnprocessableEntity, "UNPROCESSABLE_ENTITY"},
		{InternalServerError("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.wantStatus, tc.err.StatusCode())
		assert.Equal(t, tc.wantCode, tc.err.ErrCode())
		assert.NotEmpty(t, tc.err.Error())
	}
}

func TestAgentHTTPKind(t *testing.T) {
	assert.Equal(t, Kind("agent_http_500"), AgentHTTPKind(500))
	assert.Equal(t, Kind("agent_http_404"), AgentHTTPKind(404))
}

func TestPipelineError_UnwrapAndErrorsAs(t *testing.T) {
	cause := errors.New("connection refused")
	pe := NewPipelineError(KindAgentNetwork, cause)

	assert.Equal(t, KindAgentNetwork, pe.Kind)
	assert.ErrorIs(t, pe, cause)
	assert.Contains(t, pe.Error(), "agent_network")
	assert.Contains(t, pe.Error(), "connection refused")

	var target *PipelineError
	assert.True(t, errors.As(error(pe), &target))
}

func TestPipelineError_NoCause(t *testing.T) {
	pe := NewPipelineError(KindCancelled, nil)
	assert.Equal(t, "cancelled", pe.Error())
	assert.Nil(t, pe.Unwrap())
}
