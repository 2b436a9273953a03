package requestid_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchantkit/keygate/pkg/requestid"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	serve := func(t *testing.T, header string) (*httptest.ResponseRecorder, string) {
		t.Helper()
		var seen string
		h := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = requestid.FromContext(r.Context())
		}))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set(requestid.Header, header)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w, seen
	}

	t.Run("generates an id when absent", func(t *testing.T) {
		t.Parallel()
		w, seen := serve(t, "")

		require.NotEmpty(t, seen)
		_, err := uuid.Parse(seen)
		require.NoError(t, err)
		assert.Equal(t, seen, w.Header().Get(requestid.Header))
	})

	t.Run("reuses a valid client id", func(t *testing.T) {
		t.Parallel()
		w, seen := serve(t, "client-id_42")

		assert.Equal(t, "client-id_42", seen)
		assert.Equal(t, "client-id_42", w.Header().Get(requestid.Header))
	})

	t.Run("replaces an invalid client id", func(t *testing.T) {
		t.Parallel()
		_, seen := serve(t, "bad id with spaces")

		assert.NotEqual(t, "bad id with spaces", seen)
		_, err := uuid.Parse(seen)
		require.NoError(t, err)
	})

	t.Run("replaces an oversized client id", func(t *testing.T) {
		t.Parallel()
		_, seen := serve(t, strings.Repeat("a", 129))

		_, err := uuid.Parse(seen)
		require.NoError(t, err)
	})
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := requestid.LoggerExtractor()

	ctx := requestid.WithContext(t.Context(), "req-7")
	attr, ok := extract(ctx)
	require.True(t, ok)
	assert.Equal(t, "request_id", attr.Key)
	assert.Equal(t, "req-7", attr.Value.String())

	_, ok = extract(t.Context())
	assert.False(t, ok)
}
