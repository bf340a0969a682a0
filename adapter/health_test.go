package adapter

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

type fakeHealth struct {
	err  error
	last time.Time
}

func (f *fakeHealth) Err() error          { return f.err }
func (f *fakeHealth) LastTurn() time.Time { return f.last }

func status(h http.Handler, path string) int {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec.Code
}

func TestHealthHandler(t *testing.T) {
	fh := &fakeHealth{}
	h := NewHealthHandler(prometheus.NewRegistry(), fh, time.Minute)

	assert.Equal(t, http.StatusOK, status(h, "/live"))
	assert.Equal(t, http.StatusServiceUnavailable, status(h, "/ready"))

	fh.last = time.Now()
	assert.Equal(t, http.StatusOK, status(h, "/ready"))

	fh.last = time.Now().Add(-2 * time.Minute)
	assert.Equal(t, http.StatusServiceUnavailable, status(h, "/ready"))

	fh.err = errors.New("flush failed")
	assert.Equal(t, http.StatusServiceUnavailable, status(h, "/live"))
}

func TestTurnAgeCheck(t *testing.T) {
	fh := &fakeHealth{}
	check := TurnAgeCheck(fh, 0)
	assert.ErrorIs(t, check(), ErrNoTurnYet)
	fh.last = time.Now().Add(-time.Hour)
	assert.NoError(t, check())
}
