package hoursapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	c, err := NewClient(Options{
		BaseURL:           srv.URL + "/api",
		CSRFBootstrapPath: "/auth/login/",
		Retries:           3,
		Backoff:           time.Millisecond,
	}, logger)
	require.NoError(t, err)
	return c
}

// csrfBootstrap sets the token cookie the way the backend login page does
func csrfBootstrap(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: token, Path: "/"})
	w.WriteHeader(http.StatusOK)
}

func TestNewClientInvalidURL(t *testing.T) {
	for _, u := range []string{"", "localhost:8000", "::bad"} {
		_, err := NewClient(Options{BaseURL: u}, zap.NewNop())
		assert.Error(t, err, "NewClient(%q)", u)
	}
}

func TestGetHoursByDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/horas/api/fecha/2024-02-05/", r.URL.Path)
		assert.Empty(t, r.Header.Get("X-CSRFToken"))
		_, _ = w.Write([]byte(`[{"id": 7, "proyecto": "Portal", "horas": 2.5, "tipo_tarea": "tarea", "descripcion": "API"}]`))
	}))
	defer srv.Close()

	entries, err := newTestClient(t, srv).GetHoursByDate(context.Background(), "2024-02-05")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(7), entries[0].ID)
	assert.True(t, entries[0].Hours.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, TaskTypeTask, entries[0].TaskType)
}

func TestListHours(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/horas/", r.URL.Path)
		assert.Equal(t, "2024-02-01", r.URL.Query().Get("fecha_inicio"))
		assert.Equal(t, "2024-02-29", r.URL.Query().Get("fecha_fin"))
		assert.Equal(t, "3", r.URL.Query().Get("proyecto"))
		_, _ = w.Write([]byte(`[{
			"id": 1, "fecha": "2024-02-05", "proyecto_id": 3, "proyecto_nombre": "Portal",
			"proyecto_color": "#ff0000", "horas": 8.0, "descripcion": "", "tipo_tarea": "reunion",
			"tipo_tarea_display": "Reunión",
			"created_at": "2024-02-05T10:00:00.123456+00:00", "updated_at": "2024-02-05T10:00:00"
		}]`))
	}))
	defer srv.Close()

	entries, err := newTestClient(t, srv).ListHours(context.Background(), Filter{
		From: "2024-02-01", To: "2024-02-29", ProjectID: 3,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Reunión", entries[0].TaskTypeDisplay)
	assert.Equal(t, 2024, entries[0].CreatedAt.Year())
	assert.Equal(t, 10, entries[0].UpdatedAt.Hour())
}

func TestGetHolidaysAndPeriod(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/feriados/":
			_, _ = w.Write([]byte(`[{"id": 1, "fecha": "2024-01-01", "nombre": "Año Nuevo"}]`))
		case "/api/periodos/activo/":
			_, _ = w.Write([]byte(`{"success": true, "periodo": null, "message": "No hay período activo configurado"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	holidays, err := c.GetHolidays(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Holiday{{ID: 1, Date: "2024-01-01", Name: "Año Nuevo"}}, holidays)

	period, err := c.GetActivePeriod(context.Background())
	require.NoError(t, err)
	assert.Nil(t, period)
}

func TestCreateHourSendsCSRF(t *testing.T) {
	var bootstraps int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login/":
			atomic.AddInt32(&bootstraps, 1)
			csrfBootstrap(w, "tok-1")
		case "/api/horas/api/":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "tok-1", r.Header.Get("X-CSRFToken"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var req HourRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "2024-02-05", req.Date)
			assert.Equal(t, int64(3), req.ProjectID)
			assert.True(t, req.Hours.Equal(decimal.RequireFromString("1.5")))

			_, _ = w.Write([]byte(`{"success": true, "message": "Registro creado exitosamente",
				"data": {"id": 42, "fecha": "2024-02-05", "proyecto_nombre": "Portal", "horas": 1.5}}`))
		}
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	for i := 0; i < 2; i++ {
		created, err := c.CreateHour(context.Background(), HourRequest{
			Date:      "2024-02-05",
			ProjectID: 3,
			Hours:     decimal.RequireFromString("1.5"),
			TaskType:  TaskTypeTask,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(42), created.ID)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&bootstraps), "token cookie should be reused")
}

func TestForbiddenRefreshesCSRFOnce(t *testing.T) {
	var bootstraps, deletes int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login/":
			n := atomic.AddInt32(&bootstraps, 1)
			if n == 1 {
				csrfBootstrap(w, "stale")
			} else {
				csrfBootstrap(w, "fresh")
			}
		case "/api/horas/api/9/":
			atomic.AddInt32(&deletes, 1)
			if r.Header.Get("X-CSRFToken") != "fresh" {
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"detail": "CSRF Failed"}`))
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	err := newTestClient(t, srv).DeleteHour(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&bootstraps))
	assert.Equal(t, int32(2), atomic.LoadInt32(&deletes))
}

func TestUpdateHour(t *testing.T) {
	var puts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login/":
			csrfBootstrap(w, "tok-put")
		case "/api/horas/api/12/":
			atomic.AddInt32(&puts, 1)
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "tok-put", r.Header.Get("X-CSRFToken"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var req HourRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "2024-02-06", req.Date)
			assert.Equal(t, int64(4), req.ProjectID)
			assert.True(t, req.Hours.Equal(decimal.RequireFromString("3")))
			assert.Equal(t, "Revisión", req.Description)
			assert.Equal(t, TaskTypeMeeting, req.TaskType)

			_, _ = w.Write([]byte(`{"success": true, "message": "Registro actualizado exitosamente"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	err := newTestClient(t, srv).UpdateHour(context.Background(), 12, HourRequest{
		Date:        "2024-02-06",
		ProjectID:   4,
		Hours:       decimal.RequireFromString("3"),
		Description: "Revisión",
		TaskType:    TaskTypeMeeting,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&puts))
}

func TestUpdateHourNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/login/" {
			csrfBootstrap(w, "tok")
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success": false, "error": "Registro no encontrado"}`))
	}))
	defer srv.Close()

	err := newTestClient(t, srv).UpdateHour(context.Background(), 404, HourRequest{Date: "2024-02-06", ProjectID: 4})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "Registro no encontrado")
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCalls int32
	}{
		{"Bad request is not retried", http.StatusBadRequest, `{"success": false, "error": "Faltan campos requeridos"}`, 1},
		{"Not found is not retried", http.StatusNotFound, `not found`, 1},
		{"Server error is retried", http.StatusInternalServerError, `boom`, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv).GetHolidays(context.Background())
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr), "error %v should wrap *APIError", err)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestCreateHourRejectedMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/login/" {
			csrfBootstrap(w, "tok")
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success": false, "error": "Proyecto no encontrado o no pertenece al usuario"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).CreateHour(context.Background(), HourRequest{Date: "2024-02-05", ProjectID: 99})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Proyecto no encontrado")
}

func TestRetryHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	logger, _ := zap.NewDevelopment()
	c, err := NewClient(Options{BaseURL: srv.URL + "/api", Retries: 5, Backoff: time.Hour}, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = c.GetHolidays(ctx)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAPITimeUnmarshal(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{`"2024-02-05T10:00:00.123456+00:00"`, false},
		{`"2024-02-05T10:00:00Z"`, false},
		{`"2024-02-05T10:00:00.5"`, false},
		{`"2024-02-05T10:00:00"`, false},
		{`""`, false},
		{`"05/02/2024"`, true},
		{`12`, true},
	}

	for _, tt := range tests {
		var at APITime
		err := json.Unmarshal([]byte(tt.input), &at)
		if (err != nil) != tt.wantErr {
			t.Errorf("APITime.UnmarshalJSON(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}
