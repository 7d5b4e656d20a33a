package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siterisk/pkg/apperr"
)

func TestWriteError(t *testing.T) {
	t.Run("coded error maps status and detail", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, apperr.New(apperr.CodeNotFound, "Assessment not found"))

		assert.Equal(t, http.StatusNotFound, w.Code)

		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "Assessment not found", body["detail"])
	})

	t.Run("uncoded error hides internals", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "internal server error", body["detail"])
	})
}

func TestDecode(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	v, err := Decode[payload](r)
	require.NoError(t, err)
	assert.Equal(t, "x", v.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	_, err = Decode[payload](r)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeBadRequest))
}
