package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpctrl "github.com/hearth-archive/hearth/pkg/controller/http"
	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/hearth-archive/hearth/pkg/domain/types"
	"github.com/hearth-archive/hearth/pkg/repository/memory"
	"github.com/hearth-archive/hearth/pkg/usecase"
	"github.com/m-mizutani/gt"
)

var testNow = time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

type fixture struct {
	repo   *memory.Repository
	uc     *usecase.UseCases
	server *httptest.Server
}

func newFixture(t *testing.T, opts ...httpctrl.Options) *fixture {
	t.Helper()
	repo := memory.New()
	uc := usecase.New(repo, usecase.WithClock(func() time.Time { return testNow }))
	srv := httptest.NewServer(httpctrl.New(uc, opts...))
	t.Cleanup(func() {
		uc.Hub().Close(context.Background())
		srv.Close()
	})
	return &fixture{repo: repo, uc: uc, server: srv}
}

func (f *fixture) createWedding(t *testing.T) *model.Memory {
	t.Helper()
	happened := model.MustParseDate("2020-06-15")
	m, err := f.repo.Memory().Create(context.Background(), &model.Memory{
		ID:              model.NewMemoryID(),
		Kind:            types.MemoryKindPhoto,
		Title:           "Wedding day",
		HappenedAt:      &happened,
		AnniversaryType: types.AnniversaryWedding,
		ProactiveScore:  5,
		CreatedAt:       testNow.AddDate(-1, 0, 0),
	})
	gt.NoError(t, err).Required()
	return m
}

func (f *fixture) createPerson(t *testing.T, name string) *model.Person {
	t.Helper()
	p, err := f.repo.Person().Create(context.Background(), &model.Person{
		ID:   model.NewPersonID(),
		Name: name,
	})
	gt.NoError(t, err).Required()
	return p
}

func (f *fixture) createTagged(t *testing.T, title string, people ...*model.Person) *model.Memory {
	t.Helper()
	m, err := f.repo.Memory().Create(context.Background(), &model.Memory{
		ID:        model.NewMemoryID(),
		Kind:      types.MemoryKindText,
		Title:     title,
		People:    people,
		CreatedAt: testNow.AddDate(0, -1, 0),
	})
	gt.NoError(t, err).Required()
	return m
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	gt.NoError(t, err).Required()
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	gt.NoError(t, err).Required()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	gt.NoError(t, err).Required()
	var out map[string]any
	if len(raw) > 0 {
		gt.NoError(t, json.Unmarshal(raw, &out)).Required()
	}
	return resp.StatusCode, out
}
