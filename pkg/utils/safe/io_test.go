package safe_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hearth-archive/hearth/pkg/utils/safe"
	"github.com/m-mizutani/gt"
)

type closer struct {
	closed bool
	err    error
}

func (c *closer) Close() error {
	c.closed = true
	return c.err
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	safe.Close(ctx, nil)

	c := &closer{err: errors.New("already closed")}
	safe.Close(ctx, c)
	gt.Bool(t, c.closed).True()
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	safe.WriteJSON(context.Background(), w, http.StatusCreated, map[string]int{"count": 2})

	gt.Value(t, w.Code).Equal(http.StatusCreated)
	gt.String(t, w.Body.String()).Contains(`"count":2`)
}
