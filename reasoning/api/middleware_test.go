package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BaSui01/agentflow/reasoning/api"
	"github.com/stretchr/testify/assert"
)

func TestQPSGuard_AllowsBurstThenRejects(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mw := api.QPSGuard(1, 2, nil)
	handler := mw(next)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reasoning/deepthink", nil))
		assert.Equal(t, http.StatusOK, w.Code, "request %d within burst should be allowed", i)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reasoning/deepthink", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestQPSGuard_ZeroQPSRejectsEverything(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := api.QPSGuard(0, 0, nil)(next)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reasoning/deepthink", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
