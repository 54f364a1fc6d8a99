package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/siherrmann/dealgraph/helper"
	"github.com/siherrmann/dealgraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeService struct {
	err       error
	healthErr error

	question   string
	entityType model.EntityType
	limit      int
	hops       int
}

func (f *fakeService) Ask(ctx context.Context, question string) (*model.Answer, error) {
	f.question = question
	if f.err != nil {
		return nil, f.err
	}
	return &model.Answer{
		Question: question,
		Route:    model.RouteGraph,
		Text:     "Acme acquired Widget.",
		Sources:  []string{"https://example.com/a"},
	}, nil
}

func (f *fakeService) Report(ctx context.Context, url string, topic string) (*model.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.Report{ArticleURL: url, Topic: topic, Text: "# Report"}, nil
}

func (f *fakeService) ArticleURLs() ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []string{"https://example.com/a", "https://example.com/b"}, nil
}

func (f *fakeService) SearchEntities(ctx context.Context, term string, entityType model.EntityType, limit int) ([]*model.Entity, error) {
	f.entityType = entityType
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []*model.Entity{{ID: uuid.New(), Name: "Acme Corp", Type: model.EntityCompany}}, nil
}

func (f *fakeService) Neighbors(ctx context.Context, entityID uuid.UUID, hops int) ([]*model.TraversalNode, error) {
	f.hops = hops
	if f.err != nil {
		return nil, f.err
	}
	return []*model.TraversalNode{{
		Entity:   &model.Entity{ID: entityID, Name: "Acme Corp", Type: model.EntityCompany},
		Distance: 0,
		Path:     []uuid.UUID{entityID},
	}}, nil
}

func (f *fakeService) CheckHealth(ctx context.Context) error {
	return f.healthErr
}

func newTestServer(service Service) *Server {
	return NewServer(service, Config{}, helper.NewLogger(os.Stdout, slog.LevelWarn))
}

func do(t *testing.T, s *Server, method string, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	t.Run("Healthy", func(t *testing.T) {
		rec := do(t, newTestServer(&fakeService{}), http.MethodGet, "/healthz", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("Database unreachable", func(t *testing.T) {
		rec := do(t, newTestServer(&fakeService{healthErr: errors.New("connection refused")}), http.MethodGet, "/healthz", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestAsk(t *testing.T) {
	t.Run("Returns the answer", func(t *testing.T) {
		service := &fakeService{}
		rec := do(t, newTestServer(service), http.MethodPost, "/api/ask", AskRequest{Question: "Who acquired Widget?"})
		require.Equal(t, http.StatusOK, rec.Code)

		answer := &model.Answer{}
		decode(t, rec, answer)
		assert.Equal(t, "Acme acquired Widget.", answer.Text)
		assert.Equal(t, model.RouteGraph, answer.Route)
		assert.Equal(t, "Who acquired Widget?", service.question)
	})

	t.Run("Missing question", func(t *testing.T) {
		rec := do(t, newTestServer(&fakeService{}), http.MethodPost, "/api/ask", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Blank question", func(t *testing.T) {
		rec := do(t, newTestServer(&fakeService{}), http.MethodPost, "/api/ask", AskRequest{Question: "   "})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Service error", func(t *testing.T) {
		rec := do(t, newTestServer(&fakeService{err: errors.New("llm down")}), http.MethodPost, "/api/ask", AskRequest{Question: "Who?"})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"llm down"}`, rec.Body.String())
	})
}

func TestReport(t *testing.T) {
	t.Run("Returns the report", func(t *testing.T) {
		rec := do(t, newTestServer(&fakeService{}), http.MethodPost, "/api/report", ReportRequest{URL: "https://example.com/a", Topic: "SWOT"})
		require.Equal(t, http.StatusOK, rec.Code)

		report := &model.Report{}
		decode(t, rec, report)
		assert.Equal(t, "# Report", report.Text)
		assert.Equal(t, "SWOT", report.Topic)
	})

	t.Run("Missing topic", func(t *testing.T) {
		rec := do(t, newTestServer(&fakeService{}), http.MethodPost, "/api/report", map[string]string{"url": "https://example.com/a"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestArticles(t *testing.T) {
	rec := do(t, newTestServer(&fakeService{}), http.MethodGet, "/api/articles", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"articles":["https://example.com/a","https://example.com/b"]}`, rec.Body.String())
}

func TestEntities(t *testing.T) {
	t.Run("Search with type and limit", func(t *testing.T) {
		service := &fakeService{}
		rec := do(t, newTestServer(service), http.MethodGet, "/api/entities?q=acme&type=company&limit=5", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, model.EntityCompany, service.entityType)
		assert.Equal(t, 5, service.limit)

		var body struct {
			Entities []*model.Entity `json:"entities"`
		}
		decode(t, rec, &body)
		require.Len(t, body.Entities, 1)
		assert.Equal(t, "Acme Corp", body.Entities[0].Name)
	})

	t.Run("Default limit", func(t *testing.T) {
		service := &fakeService{}
		rec := do(t, newTestServer(service), http.MethodGet, "/api/entities?q=acme", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, DefaultEntityLimit, service.limit)
		assert.Equal(t, model.EntityType(""), service.entityType)
	})

	t.Run("Unknown type", func(t *testing.T) {
		rec := do(t, newTestServer(&fakeService{}), http.MethodGet, "/api/entities?type=planet", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Invalid limit", func(t *testing.T) {
		rec := do(t, newTestServer(&fakeService{}), http.MethodGet, "/api/entities?limit=-1", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestNeighbors(t *testing.T) {
	id := uuid.New()

	t.Run("Returns the traversal", func(t *testing.T) {
		service := &fakeService{}
		rec := do(t, newTestServer(service), http.MethodGet, fmt.Sprintf("/api/entities/%s/neighbors?hops=3", id), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 3, service.hops)

		var body struct {
			Neighbors []*model.TraversalNode `json:"neighbors"`
		}
		decode(t, rec, &body)
		require.Len(t, body.Neighbors, 1)
		assert.Equal(t, id, body.Neighbors[0].Entity.ID)
	})

	t.Run("Hops default to the service setting", func(t *testing.T) {
		service := &fakeService{}
		rec := do(t, newTestServer(service), http.MethodGet, fmt.Sprintf("/api/entities/%s/neighbors", id), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 0, service.hops)
	})

	t.Run("Invalid id", func(t *testing.T) {
		rec := do(t, newTestServer(&fakeService{}), http.MethodGet, "/api/entities/not-a-uuid/neighbors", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Unknown entity", func(t *testing.T) {
		service := &fakeService{err: helper.NewError("select entity", sql.ErrNoRows)}
		rec := do(t, newTestServer(service), http.MethodGet, fmt.Sprintf("/api/entities/%s/neighbors", id), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCORS(t *testing.T) {
	t.Run("All origins by default", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/articles", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		newTestServer(&fakeService{}).Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Restricted origins", func(t *testing.T) {
		s := NewServer(&fakeService{}, Config{AllowedOrigins: []string{"https://deals.example.com"}}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/articles", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		req = httptest.NewRequest(http.MethodGet, "/api/articles", nil)
		req.Header.Set("Origin", "https://deals.example.com")
		rec = httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "https://deals.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
