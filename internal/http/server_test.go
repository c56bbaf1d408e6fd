package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "smartexpense/internal/log"
	"smartexpense/internal/ports"
	"smartexpense/internal/services"
	"smartexpense/internal/storage"
)

type testServer struct {
	t    *testing.T
	srv  *Server
	repo *storage.Repository
}

func newTestServerWith(t *testing.T, backend func(*storage.Repository) ports.Backend, rateLimit int) *testServer {
	t.Helper()

	repo, err := storage.Open(context.Background(), storage.Config{
		Driver:       storage.DriverSQLite,
		SQLiteDBPath: filepath.Join(t.TempDir(), "api.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	svc := services.NewExpenseService(repo, repo, repo, nil)
	logger := applog.New(applog.Config{Format: "json", Output: io.Discard})
	srv := NewServer(":0", backend(repo), svc, Options{RateLimitPerMinute: rateLimit, Logger: logger})
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	return &testServer{t: t, srv: srv, repo: repo}
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWith(t, func(r *storage.Repository) ports.Backend { return r }, 1000)
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	ts.t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) create(path, body string) map[string]any {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, path, body)
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[map[string]any](ts.t, rec)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func id(v map[string]any) int64 {
	return int64(v["id"].(float64))
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := ts.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	}
}

type downBackend struct{ ports.Backend }

func (downBackend) Ping(context.Context) error { return errors.New("connection refused") }

func TestReadyReportsUnavailableDatabase(t *testing.T) {
	ts := newTestServerWith(t, func(r *storage.Repository) ports.Backend { return downBackend{r} }, 1000)

	rec := ts.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUsersEndpoints(t *testing.T) {
	ts := newTestServer(t)

	alice := ts.create("/users", `{"name":" alice ","email":"alice@example.com"}`)
	assert.Equal(t, "alice", alice["name"])
	assert.Equal(t, "alice@example.com", alice["email"])

	bob := ts.create("/api/users", `{"name":"bob"}`)
	assert.Nil(t, bob["email"])

	rec := ts.do(http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[[]map[string]any](t, rec)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0]["name"])
	assert.Equal(t, "bob", users[1]["name"])

	t.Run("duplicate", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/users", `{"name":"alice"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "User with that name/email may already exist.", decode[map[string]string](t, rec)["detail"])
	})

	t.Run("validation", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/users", `{"email":"not-an-email"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		errs := decode[map[string][]string](t, rec)
		assert.Equal(t, []string{"This field is required."}, errs["name"])
		assert.Equal(t, []string{"Enter a valid email address."}, errs["email"])
	})

	t.Run("form encoded body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader("name=carol"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		ts.srv.Handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/users", `{"name":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode[map[string]string](t, rec)["detail"], "JSON parse error")
	})

	t.Run("delete", func(t *testing.T) {
		rec := ts.do(http.MethodDelete, fmt.Sprintf("/users/%d", id(bob)), "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())

		rec = ts.do(http.MethodDelete, fmt.Sprintf("/users/%d", id(bob)), "")
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = ts.do(http.MethodDelete, "/users/abc", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCategoriesEndpoints(t *testing.T) {
	ts := newTestServer(t)

	ts.create("/categories", `{"name":"Transport"}`)
	food := ts.create("/categories", `{"name":"Food"}`)

	rec := ts.do(http.MethodGet, "/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decode[[]map[string]any](t, rec)
	require.Len(t, cats, 2)
	assert.Equal(t, "Food", cats[0]["name"])
	assert.Equal(t, "Transport", cats[1]["name"])

	rec = ts.do(http.MethodPost, "/categories", `{"name":"Food"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Category may already exist.", decode[map[string]string](t, rec)["detail"])

	rec = ts.do(http.MethodPost, "/categories", `{"name":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"This field may not be blank."}, decode[map[string][]string](t, rec)["name"])

	user := ts.create("/users", `{"name":"alice"}`)
	ts.create("/expenses", fmt.Sprintf(`{"user_id":%d,"category_id":%d,"amount":"1.00"}`, id(user), id(food)))

	rec = ts.do(http.MethodDelete, fmt.Sprintf("/categories/%d", id(food)), "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodDelete, fmt.Sprintf("/users/%d", id(user)), "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(http.MethodDelete, fmt.Sprintf("/categories/%d", id(food)), "")
	assert.Equal(t, http.StatusNoContent, rec.Code, "deleting the user cascaded its expenses")
}

func TestExpensesEndpoints(t *testing.T) {
	ts := newTestServer(t)
	user := ts.create("/users", `{"name":"alice"}`)
	food := ts.create("/categories", `{"name":"Food"}`)

	created := ts.create("/expenses", fmt.Sprintf(
		`{"user_id":%d,"category_id":%d,"amount":12.3,"description":"lunch","spent_at":"2024-03-15T12:30:00+02:00"}`,
		id(user), id(food)))
	assert.Equal(t, "12.30", created["amount"])
	assert.Equal(t, "Food", created["category_name"])
	assert.Equal(t, "lunch", created["description"])
	assert.Equal(t, "2024-03-15T10:30:00Z", created["spent_at"])

	second := ts.create("/expenses", fmt.Sprintf(
		`{"user_id":"%d","category_id":%d,"amount":"3","spent_at":"2024-04-01T00:00:00Z"}`, id(user), id(food)))
	assert.Equal(t, "3.00", second["amount"])
	assert.Nil(t, second["description"])

	rec := ts.do(http.MethodGet, fmt.Sprintf("/expenses?user_id=%d", id(user)), "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]map[string]any](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, id(second), id(list[0]), "most recent first")

	t.Run("user_id is required", func(t *testing.T) {
		rec := ts.do(http.MethodGet, "/expenses", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "user_id is required", decode[map[string]string](t, rec)["detail"])
	})

	t.Run("unknown references", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/expenses", `{"user_id":999,"category_id":998,"amount":"1.00"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		errs := decode[map[string][]string](t, rec)
		assert.Equal(t, []string{"User not found."}, errs["user_id"])
		assert.Equal(t, []string{"Category not found."}, errs["category_id"])
	})

	t.Run("field validation", func(t *testing.T) {
		rec := ts.do(http.MethodPost, "/expenses", `{"user_id":"x","amount":"0.001","spent_at":"yesterday"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		errs := decode[map[string][]string](t, rec)
		assert.Equal(t, []string{"A valid integer is required."}, errs["user_id"])
		assert.Equal(t, []string{"This field is required."}, errs["category_id"])
		assert.Equal(t, []string{"Ensure that there are no more than 2 decimal places."}, errs["amount"])
		assert.Contains(t, errs, "spent_at")
	})

	t.Run("amount limits", func(t *testing.T) {
		for body, want := range map[string]string{
			`"-1"`:           "Ensure this value is greater than or equal to 0.01.",
			`"0"`:            "Ensure this value is greater than or equal to 0.01.",
			`"abc"`:          "A valid number is required.",
			`12.345`:         "Ensure that there are no more than 2 decimal places.",
			`"10000000000"`:  "Ensure that there are no more than 10 digits before the decimal point.",
			`9999999999.995`: "Ensure that there are no more than 12 digits in total.",
			`1e99999999`:     "Ensure that there are no more than 12 digits in total.",
			`"1e-99999999"`:  "Ensure that there are no more than 12 digits in total.",
		} {
			rec := ts.do(http.MethodPost, "/expenses", fmt.Sprintf(`{"user_id":%d,"category_id":%d,"amount":%s}`, id(user), id(food), body))
			assert.Equal(t, http.StatusBadRequest, rec.Code, body)
			assert.Equal(t, []string{want}, decode[map[string][]string](t, rec)["amount"], body)
		}
	})
}

func TestMonthlySummaryEndpoint(t *testing.T) {
	ts := newTestServer(t)
	user := ts.create("/users", `{"name":"alice"}`)
	food := ts.create("/categories", `{"name":"Food"}`)
	bills := ts.create("/categories", `{"name":"Bills"}`)

	for _, e := range []struct {
		cat    map[string]any
		amount string
		at     string
	}{
		{food, "10.01", "2024-03-01T00:00:00Z"},
		{food, "2.25", "2024-03-31T23:59:59Z"},
		{bills, "100", "2024-03-10T08:00:00Z"},
		{bills, "50", "2024-04-01T00:00:00Z"},
	} {
		ts.create("/expenses", fmt.Sprintf(`{"user_id":%d,"category_id":%d,"amount":"%s","spent_at":"%s"}`,
			id(user), id(e.cat), e.amount, e.at))
	}

	rec := ts.do(http.MethodGet, fmt.Sprintf("/api/reports/monthly_summary?year=2024&month=3&user_id=%d", id(user)), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{
		"total_expenses": "112.26",
		"expenses_by_category": [
			{"category_name": "Bills", "total_amount": "100.00"},
			{"category_name": "Food", "total_amount": "12.26"}
		]
	}`, rec.Body.String())

	rec = ts.do(http.MethodGet, fmt.Sprintf("/reports/monthly_summary?year=2024&month=5&user_id=%d", id(user)), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_expenses":"0.00","expenses_by_category":[]}`, rec.Body.String())

	for _, year := range []string{"0", "-1", "12345"} {
		rec = ts.do(http.MethodGet, fmt.Sprintf("/reports/monthly_summary?year=%s&month=3&user_id=%d", year, id(user)), "")
		require.Equal(t, http.StatusOK, rec.Code, year)
		assert.JSONEq(t, `{"total_expenses":"0.00","expenses_by_category":[]}`, rec.Body.String(), year)
	}

	tests := []struct {
		query  string
		detail string
	}{
		{"year=2024&month=3", "year, month, and user_id are required integers."},
		{"year=abc&month=3&user_id=1", "year, month, and user_id are required integers."},
		{"year=2024&month=13&user_id=1", "month must be 1-12."},
		{"year=2024&month=0&user_id=1", "month must be 1-12."},
	}
	for _, tt := range tests {
		rec := ts.do(http.MethodGet, "/reports/monthly_summary?"+tt.query, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, tt.query)
		assert.Equal(t, tt.detail, decode[map[string]string](t, rec)["detail"], tt.query)
	}
}

func TestExportEndpoints(t *testing.T) {
	ts := newTestServer(t)
	user := ts.create("/users", `{"name":"alice"}`)
	food := ts.create("/categories", `{"name":"Food"}`)
	ts.create("/expenses", fmt.Sprintf(`{"user_id":%d,"category_id":%d,"amount":"12.30","spent_at":"2024-03-15T12:00:00Z"}`,
		id(user), id(food)))

	rec := ts.do(http.MethodGet, fmt.Sprintf("/api/reports/monthly_summary.pdf?year=2024&month=3&user_id=%d", id(user)), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), fmt.Sprintf("summary_%d_2024_03.pdf", id(user)))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	rec = ts.do(http.MethodGet, fmt.Sprintf("/expenses/export.xlsx?user_id=%d", id(user)), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	// xlsx is a zip archive
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	rec = ts.do(http.MethodGet, "/reports/monthly_summary.pdf?year=2024&month=3&user_id=999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(http.MethodGet, "/reports/monthly_summary.pdf?year=2024", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(http.MethodGet, "/expenses/export.xlsx?user_id=999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(http.MethodGet, "/expenses/export.xlsx", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPut, "/users", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Header().Get("Allow"), "POST")

	rec = ts.do(http.MethodPost, "/reports/monthly_summary", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWritesAreRateLimited(t *testing.T) {
	ts := newTestServerWith(t, func(r *storage.Repository) ports.Backend { return r }, 2)

	for i := 0; i < 2; i++ {
		ts.create("/categories", fmt.Sprintf(`{"name":"c%d"}`, i))
	}
	rec := ts.do(http.MethodPost, "/categories", `{"name":"c3"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = ts.do(http.MethodGet, "/categories", "")
	assert.Equal(t, http.StatusOK, rec.Code, "reads are not limited")

	m := ts.srv.Metrics()
	assert.Equal(t, int64(4), m.TotalRequests)
	assert.Equal(t, int64(1), m.RateLimited)
	assert.Equal(t, 1, m.ActiveClients)
}

func TestTrustedProxiesSeparateClients(t *testing.T) {
	repo, err := storage.Open(context.Background(), storage.Config{
		Driver:       storage.DriverSQLite,
		SQLiteDBPath: filepath.Join(t.TempDir(), "proxy.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	newServer := func(trusted []string) *Server {
		srv := NewServer(":0", repo, services.NewExpenseService(repo, repo, repo, nil), Options{
			RateLimitPerMinute: 1,
			Logger:             applog.New(applog.Config{Output: io.Discard}),
			TrustedProxies:     trusted,
		})
		t.Cleanup(func() { srv.Shutdown(context.Background()) })
		return srv
	}
	post := func(srv *Server, name, forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/categories", strings.NewReader(`{"name":"`+name+`"}`))
		req.RemoteAddr = "203.0.113.5:4000"
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		return rec.Code
	}

	trusting := newServer([]string{"203.0.113.0/24"})
	assert.Equal(t, http.StatusCreated, post(trusting, "a", "198.51.100.1"))
	assert.Equal(t, http.StatusCreated, post(trusting, "b", "198.51.100.2"))
	assert.Equal(t, 2, trusting.Metrics().ActiveClients)

	direct := newServer(nil)
	assert.Equal(t, http.StatusCreated, post(direct, "c", "198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, post(direct, "d", "198.51.100.2"))
}

func TestJSONResponseBuilder(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusAccepted).Header("X-Test", "1").Body(map[string]int{"a": 1}).Write(rec)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Test"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"a":1}`, rec.Body.String())

	rec = httptest.NewRecorder()
	NewJSONResponse().Body(func() {}).Write(rec)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWriteErrorHidesUnexpectedErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	writeError(rec, req, errors.New("disk on fire"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, bytes.Contains(rec.Body.Bytes(), []byte("disk")))
}
