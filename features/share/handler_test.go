package share_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"citeweb/features/share"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Save(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	args := m.Called(ctx, id, data, ttl)
	return args.Error(0)
}

func (m *MockRepository) Get(ctx context.Context, id string) ([]byte, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func newMux(h *share.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /share", h.Create)
	mux.HandleFunc("GET /share/{id}", h.Get)
	return mux
}

func TestHandler_RoundTrip(t *testing.T) {
	_, client := setupRedis(t)
	svc := share.NewService(share.NewRedisRepo(client), time.Hour)
	mux := newMux(share.NewHandler(svc))

	req := httptest.NewRequest(http.MethodPost, "http://citeweb.test/share",
		strings.NewReader(`{"data":{"answer":"Rings (Source 1)","sources":[{"link":"https://a"}]}}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var created map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	require.NotEmpty(t, created["id"])
	assert.Equal(t, "http://citeweb.test/share/"+created["id"], created["url"])

	req = httptest.NewRequest(http.MethodGet, "/share/"+created["id"], nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"answer":"Rings (Source 1)","sources":[{"link":"https://a"}]}}`, w.Body.String())
}

func TestHandler_Create(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"MissingData", `{}`},
		{"NullData", `{"data":null}`},
		{"InvalidJSON", `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			mux := newMux(share.NewHandler(share.NewService(repo, time.Hour)))

			req := httptest.NewRequest(http.MethodPost, "/share", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("NoDataMessage", func(t *testing.T) {
		repo := new(MockRepository)
		mux := newMux(share.NewHandler(share.NewService(repo, time.Hour)))

		req := httptest.NewRequest(http.MethodPost, "/share", strings.NewReader(`{}`))
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		errObj := body["error"].(map[string]interface{})
		assert.Contains(t, errObj["message"], "No data provided")
	})

	t.Run("StoreFailure", func(t *testing.T) {
		repo := new(MockRepository)
		mux := newMux(share.NewHandler(share.NewService(repo, 2*time.Hour)))
		repo.On("Save", mock.Anything, mock.Anything, []byte(`"x"`), 2*time.Hour).Return(errors.New("redis down"))

		req := httptest.NewRequest(http.MethodPost, "/share", strings.NewReader(`{"data":"x"}`))
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		repo.AssertExpectations(t)
	})
}

func TestHandler_Get(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		_, client := setupRedis(t)
		mux := newMux(share.NewHandler(share.NewService(share.NewRedisRepo(client), time.Hour)))

		req := httptest.NewRequest(http.MethodGet, "/share/6f1c2a4e-8a7b-4c1d-9e2f-3b4a5c6d7e8f", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("MalformedID", func(t *testing.T) {
		repo := new(MockRepository)
		mux := newMux(share.NewHandler(share.NewService(repo, time.Hour)))

		req := httptest.NewRequest(http.MethodGet, "/share/not-a-uuid", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("MethodNotAllowed", func(t *testing.T) {
		repo := new(MockRepository)
		mux := newMux(share.NewHandler(share.NewService(repo, time.Hour)))

		req := httptest.NewRequest(http.MethodDelete, "/share", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestNewService_DefaultTTL(t *testing.T) {
	repo := new(MockRepository)
	svc := share.NewService(repo, 0)
	repo.On("Save", mock.Anything, mock.Anything, mock.Anything, share.DefaultTTL).Return(nil)

	id, err := svc.Create(context.Background(), json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	repo.AssertExpectations(t)
}
