package errorbank_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/Additional-Code/orderdesk/pkg/errorbank"
)

func TestKindMappings(t *testing.T) {
	cases := []struct {
		err    *errorbank.AppError
		kind   errorbank.Kind
		status int
		code   codes.Code
	}{
		{errorbank.BadRequest("bad"), errorbank.KindBadRequest, http.StatusBadRequest, codes.InvalidArgument},
		{errorbank.Conflict("dup"), errorbank.KindConflict, http.StatusConflict, codes.AlreadyExists},
		{errorbank.NotFound("gone"), errorbank.KindNotFound, http.StatusNotFound, codes.NotFound},
		{errorbank.Internal("boom"), errorbank.KindInternal, http.StatusInternalServerError, codes.Internal},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			assert.Equal(t, tc.kind, tc.err.Kind())
			assert.Equal(t, tc.status, tc.err.StatusCode())
			assert.Equal(t, tc.code, tc.err.GRPCCode())
		})
	}
}

func TestFrom(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, errorbank.From(nil))
	})

	t.Run("passthrough", func(t *testing.T) {
		original := errorbank.NotFound("order not found")
		wrapped := fmt.Errorf("handling request: %w", original)
		assert.Same(t, original, errorbank.From(wrapped))
	})

	t.Run("wraps unknown errors as internal", func(t *testing.T) {
		cause := errors.New("disk full")
		appErr := errorbank.From(cause)
		assert.Equal(t, errorbank.KindInternal, appErr.Kind())
		assert.ErrorIs(t, appErr, cause)
	})
}

func TestOptions(t *testing.T) {
	cause := errors.New("row missing")
	appErr := errorbank.NotFound("order not found",
		errorbank.WithCause(cause),
		errorbank.WithDetail("id", "abc"),
		errorbank.WithDetails(map[string]any{"table": "orders"}),
	)

	require.ErrorIs(t, appErr, cause)
	assert.Equal(t, "order not found: row missing", appErr.Error())
	assert.Equal(t, map[string]any{"id": "abc", "table": "orders"}, appErr.Details())
}
