package errutil_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hearth-archive/hearth/pkg/utils/errutil"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

func TestHandle(t *testing.T) {
	t.Run("returns nil for nil error", func(t *testing.T) {
		gt.NoError(t, errutil.Handle(context.Background(), nil, "nothing"))
	})

	t.Run("returns the same error", func(t *testing.T) {
		base := errors.New("boom")
		err := goerr.Wrap(base, "wrapped", goerr.V("kind", "seasonal"))
		got := errutil.Handle(context.Background(), err, "failed")
		gt.Error(t, got).Is(base)
	})
}

func TestHandleHTTP(t *testing.T) {
	w := httptest.NewRecorder()
	errutil.HandleHTTP(context.Background(), w, goerr.New("not found"), http.StatusNotFound)

	gt.Value(t, w.Code).Equal(http.StatusNotFound)
	gt.Value(t, w.Header().Get("Content-Type")).Equal("application/json")

	var body map[string]string
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &body)).Required()
	gt.Value(t, body["error"]).Equal("not found")
}
