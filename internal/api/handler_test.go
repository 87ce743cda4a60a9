package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rental-service/internal/models"
	"rental-service/internal/service"
	"rental-service/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router *gin.Engine
	repo   *store.MemoryStore
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := store.NewMemoryStore()
	services := Services{
		Customers: service.NewCustomerService(repo),
		Genres:    service.NewGenreService(repo),
		Medias:    service.NewMediaService(repo),
		Units:     service.NewUnitService(repo),
		Negotiations: service.NewNegotiationService(repo, service.NewUnitGate(), nil, nil, service.NegotiationOptions{
			ReleaseOnArchive: true,
		}),
		Search: service.NewSearchService(repo),
	}

	router := gin.New()
	require.NoError(t, NewHandler(services, opts).SetupRoutes(router))
	return &testServer{router: router, repo: repo}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// seedStarWars creates a customer and "Star Wars V" with three rentable units
func (s *testServer) seedStarWars(t *testing.T) (customer models.Customer, media models.Media, units []models.Unit) {
	t.Helper()

	w := s.do(t, http.MethodPost, "/customers", gin.H{"firstName": "Callie", "lastName": "Stewart", "email": "vel@protonmail.edu"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	customer = decode[models.Customer](t, w)

	w = s.do(t, http.MethodPost, "/medias", gin.H{"title": "Star Wars V", "mediaType": "MOVIE"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	media = decode[models.Media](t, w)

	for i := 0; i < 3; i++ {
		w = s.do(t, http.MethodPost, fmt.Sprintf("/medias/%d/units", media.ID), gin.H{"availableFor": []string{"RENT"}, "rentalPrice": 10})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		units = append(units, decode[models.Unit](t, w))
	}
	return customer, media, units
}

func (s *testServer) unitAvailable(t *testing.T, mediaID, unitID int64) bool {
	t.Helper()
	w := s.do(t, http.MethodGet, fmt.Sprintf("/medias/%d/units/%d", mediaID, unitID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	return decode[models.Unit](t, w).Available
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Options{})

	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Running", w.Body.String())
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestReadiness(t *testing.T) {
	healthy := newTestServer(t, Options{Dependencies: map[string]Pinger{
		"store": pingFunc(func(ctx context.Context) error { return nil }),
	}})
	assert.Equal(t, http.StatusOK, healthy.do(t, http.MethodGet, "/ready", nil).Code)

	broken := newTestServer(t, Options{Dependencies: map[string]Pinger{
		"redis": pingFunc(func(ctx context.Context) error { return errors.New("connection refused") }),
	}})
	w := broken.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestCustomerCrud(t *testing.T) {
	s := newTestServer(t, Options{})

	w := s.do(t, http.MethodPost, "/customers", gin.H{"firstName": "Callie", "lastName": "Stewart", "email": "vel@protonmail.edu"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[models.Customer](t, w)

	w = s.do(t, http.MethodPost, "/customers", gin.H{"firstName": "Other", "lastName": "Person", "email": "vel@protonmail.edu"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	envelope := decode[errorResponse](t, w)
	assert.False(t, envelope.Success)
	assert.Equal(t, http.StatusBadRequest, envelope.Status)
	assert.NotEmpty(t, envelope.Message)

	w = s.do(t, http.MethodPut, fmt.Sprintf("/customers/%d", created.ID), gin.H{"firstName": "Cal", "lastName": "Stewart", "email": "cal@protonmail.edu"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Cal", decode[models.Customer](t, w).FirstName)

	w = s.do(t, http.MethodGet, "/customers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[models.Results[models.Customer]](t, w)
	assert.Equal(t, int64(1), list.Total)
	require.Len(t, list.Data, 1)

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/customers/%d", created.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = s.do(t, http.MethodGet, fmt.Sprintf("/customers/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	envelope = decode[errorResponse](t, w)
	assert.Equal(t, http.StatusNotFound, envelope.Status)
	assert.Equal(t, fmt.Sprintf("customer with id %d not found", created.ID), envelope.Message)
}

func TestBindingFailuresAreBadRequests(t *testing.T) {
	s := newTestServer(t, Options{})

	cases := []struct {
		name string
		path string
		body interface{}
	}{
		{"malformed json", "/customers", "{"},
		{"missing field", "/customers", gin.H{"firstName": "Callie"}},
		{"unknown media type", "/medias", gin.H{"title": "Vinyl", "mediaType": "RECORD"}},
		{"no units", "/negotiations", gin.H{"customerId": 1, "negotiationType": "RENT", "scheduledDeliveryAt": time.Now(), "units": []int64{}}},
		{"unknown negotiation type", "/negotiations", gin.H{"customerId": 1, "negotiationType": "LEASE", "scheduledDeliveryAt": time.Now(), "units": []int64{1}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.False(t, decode[errorResponse](t, w).Success)
		})
	}
}

func TestMalformedPaginationIsServerError(t *testing.T) {
	s := newTestServer(t, Options{})

	for _, query := range []string{"offset=x", "limit=ten", "offset=-1"} {
		w := s.do(t, http.MethodGet, "/customers?"+query, nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code, query)
		envelope := decode[errorResponse](t, w)
		assert.Equal(t, http.StatusInternalServerError, envelope.Status)
	}

	w := s.do(t, http.MethodGet, "/customers/abc", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestPagination(t *testing.T) {
	s := newTestServer(t, Options{})

	for i := 0; i < 12; i++ {
		w := s.do(t, http.MethodPost, "/genres", gin.H{"title": fmt.Sprintf("Genre %d", i)})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	list := decode[models.Results[models.Genre]](t, s.do(t, http.MethodGet, "/genres", nil))
	assert.Equal(t, int64(12), list.Total)
	assert.Len(t, list.Data, 10)

	list = decode[models.Results[models.Genre]](t, s.do(t, http.MethodGet, "/genres?offset=10&limit=5", nil))
	assert.Equal(t, int64(12), list.Total)
	assert.Len(t, list.Data, 2)

	list = decode[models.Results[models.Genre]](t, s.do(t, http.MethodGet, "/genres?offset=50", nil))
	assert.Equal(t, int64(12), list.Total)
	assert.Empty(t, list.Data)

	w := s.do(t, http.MethodGet, "/genres?offset=1&limit=9223372036854775807", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list = decode[models.Results[models.Genre]](t, w)
	assert.Len(t, list.Data, 11)
}

func TestDefaultLimitOption(t *testing.T) {
	s := newTestServer(t, Options{DefaultLimit: 3})

	for i := 0; i < 5; i++ {
		w := s.do(t, http.MethodPost, "/genres", gin.H{"title": fmt.Sprintf("Genre %d", i)})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	list := decode[models.Results[models.Genre]](t, s.do(t, http.MethodGet, "/genres", nil))
	assert.Equal(t, int64(5), list.Total)
	assert.Len(t, list.Data, 3)
}

func TestNegotiationLifecycle(t *testing.T) {
	s := newTestServer(t, Options{})
	customer, media, units := s.seedStarWars(t)

	w := s.do(t, http.MethodPost, "/negotiations", gin.H{
		"customerId":          customer.ID,
		"negotiationType":     "RENT",
		"scheduledDeliveryAt": time.Now().Add(72 * time.Hour),
		"units":               []int64{units[0].ID},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	negotiation := decode[models.Negotiation](t, w)
	require.NotNil(t, negotiation.Customer)
	assert.Equal(t, customer.ID, negotiation.Customer.ID)
	assert.False(t, s.unitAvailable(t, media.ID, units[0].ID))

	// The reserved unit cannot be negotiated twice.
	w = s.do(t, http.MethodPost, "/negotiations", gin.H{
		"customerId":          customer.ID,
		"negotiationType":     "RENT",
		"scheduledDeliveryAt": time.Now().Add(72 * time.Hour),
		"units":               []int64{units[1].ID, units[0].ID},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "units must be available", decode[errorResponse](t, w).Message)
	assert.True(t, s.unitAvailable(t, media.ID, units[1].ID))

	w = s.do(t, http.MethodPost, fmt.Sprintf("/negotiations/%d/deliver", negotiation.ID), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	delivered := decode[models.Negotiation](t, w)
	assert.NotNil(t, delivered.DeliveredAt)
	assert.True(t, s.unitAvailable(t, media.ID, units[0].ID))

	w = s.do(t, http.MethodPost, fmt.Sprintf("/negotiations/%d/deliver", negotiation.ID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/negotiations/%d", negotiation.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/negotiations/%d", negotiation.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/negotiations/999/deliver", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNegotiationHistoryEndpoint(t *testing.T) {
	s := newTestServer(t, Options{})
	customer, _, units := s.seedStarWars(t)

	w := s.do(t, http.MethodPost, "/negotiations", gin.H{
		"customerId":          customer.ID,
		"negotiationType":     "RENT",
		"scheduledDeliveryAt": time.Now().Add(time.Hour),
		"units":               []int64{units[2].ID},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	negotiation := decode[models.Negotiation](t, w)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/negotiations/%d/history", negotiation.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/negotiations/999/history", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnitRoutesAreScopedToMedia(t *testing.T) {
	s := newTestServer(t, Options{})
	_, media, units := s.seedStarWars(t)

	w := s.do(t, http.MethodPost, "/medias", gin.H{"title": "Alien", "mediaType": "MOVIE"})
	require.Equal(t, http.StatusCreated, w.Code)
	other := decode[models.Media](t, w)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/medias/%d/units/%d", other.ID, units[0].ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/medias/%d/units", media.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(3), decode[models.Results[models.Unit]](t, w).Total)

	w = s.do(t, http.MethodPost, "/medias/999/units", gin.H{"availableFor": []string{"SALE"}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/medias/%d/units", media.ID), gin.H{"availableFor": []string{"LEASE"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, fmt.Sprintf("/medias/%d/units/%d", media.ID, units[0].ID), gin.H{"availableFor": []string{"SALE"}, "salePrice": 12.5})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	updated := decode[models.Unit](t, w)
	assert.Equal(t, []string{"SALE"}, []string(updated.AvailableFor))
	assert.Equal(t, "12.5", updated.SalePrice.Decimal.String())

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/medias/%d/units/%d", media.ID, units[0].ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodGet, fmt.Sprintf("/medias/%d/units", media.ID), nil)
	assert.Equal(t, int64(2), decode[models.Results[models.Unit]](t, w).Total)
}

func TestSearch(t *testing.T) {
	s := newTestServer(t, Options{})
	s.seedStarWars(t)

	w := s.do(t, http.MethodPost, "/medias", gin.H{"title": "The Lord of the Rings", "mediaType": "BOOK"})
	require.Equal(t, http.StatusCreated, w.Code)
	lotr := decode[models.Media](t, w)
	w = s.do(t, http.MethodPost, fmt.Sprintf("/medias/%d/units", lotr.ID), gin.H{"availableFor": []string{"SALE"}, "salePrice": 56.90})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodGet, "/search?title=Star&mediaType=MOVIE&availableFor=RENT", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[models.Results[models.Media]](t, w)
	assert.Equal(t, int64(1), res.Total)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "Star Wars V", res.Data[0].Title)
	assert.Len(t, res.Data[0].Units, 3)
	assert.NotNil(t, res.Data[0].Genres)

	w = s.do(t, http.MethodGet, "/search?availableFor=SALE", nil)
	res = decode[models.Results[models.Media]](t, w)
	require.Len(t, res.Data, 1)
	assert.Equal(t, lotr.ID, res.Data[0].ID)

	w = s.do(t, http.MethodGet, "/search?limit=abc", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestBasePath(t *testing.T) {
	s := newTestServer(t, Options{BasePath: "/api"})

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/genres", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/genres", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", nil).Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 2})

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/genres", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/genres", nil).Code)

	w := s.do(t, http.MethodGet, "/genres", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, http.StatusTooManyRequests, decode[errorResponse](t, w).Status)
}
