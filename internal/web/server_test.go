package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/username/hours-tracker/internal/calendar"
	"github.com/username/hours-tracker/internal/daemon"
	"github.com/username/hours-tracker/internal/datepicker"
)

var fixedNow = time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC)

func newTestApp(t *testing.T, opts Options, cal calendar.Calendar) (*App, *httptest.Server) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	opts.Now = func() time.Time { return fixedNow }
	app := NewApp(opts, cal, logger)
	srv := httptest.NewServer(NewRouter(app))
	t.Cleanup(srv.Close)
	return app, srv
}

func noRedirectClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func createSession(t *testing.T, client *http.Client, srv *httptest.Server) string {
	t.Helper()
	resp, err := client.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	location := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(location, "/calendars/"), "Location = %q", location)
	return strings.TrimPrefix(location, "/calendars/")
}

func postJSON(t *testing.T, client *http.Client, target string, form url.Values, header http.Header) (*http.Response, StateResponse) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var state StateResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	}
	return resp, state
}

func TestHealth(t *testing.T) {
	_, srv := newTestApp(t, Options{}, nil)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

type fakeRefresher struct {
	status daemon.Status
}

func (f fakeRefresher) Status() daemon.Status {
	return f.status
}

func TestHealthReportsHolidayRefresh(t *testing.T) {
	next := time.Date(2024, 2, 16, 3, 0, 0, 0, time.UTC)
	last := time.Date(2024, 2, 15, 3, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		status     daemon.Status
		wantStatus string
		wantErr    string
		wantLast   bool
	}{
		{
			name:       "Never run",
			status:     daemon.Status{Schedule: "0 3 * * *", NextRun: next},
			wantStatus: "ok",
		},
		{
			name:       "Last run succeeded",
			status:     daemon.Status{Schedule: "0 3 * * *", LastRun: last, NextRun: next},
			wantStatus: "ok",
			wantLast:   true,
		},
		{
			name:       "Last run failed",
			status:     daemon.Status{Schedule: "0 3 * * *", LastRun: last, LastErr: errors.New("backend down"), NextRun: next},
			wantStatus: "degraded",
			wantErr:    "backend down",
			wantLast:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := newTestApp(t, Options{Refresher: fakeRefresher{status: tt.status}}, nil)

			resp, err := http.Get(srv.URL + "/healthz")
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var body HealthResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantStatus, body.Status)
			require.NotNil(t, body.HolidayRefresh)
			assert.Equal(t, "0 3 * * *", body.HolidayRefresh.Schedule)
			assert.True(t, body.HolidayRefresh.NextRun.Equal(next))
			assert.Equal(t, tt.wantErr, body.HolidayRefresh.LastError)
			assert.Equal(t, tt.wantLast, body.HolidayRefresh.LastRun != nil)
		})
	}
}

func TestShowCalendar(t *testing.T) {
	_, srv := newTestApp(t, Options{}, nil)
	client := noRedirectClient(t)
	id := createSession(t, client, srv)

	resp, err := client.Get(srv.URL + "/calendars/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	html := string(body)
	assert.Contains(t, html, `id="calendar-`+id+`"`)
	assert.Contains(t, html, "Febrero 2024")
	assert.Contains(t, html, `formaction="/calendars/`+id+`/toggle"`)
	assert.Equal(t, 42, strings.Count(html, `name="date"`))
}

func TestToggleAndLastChange(t *testing.T) {
	_, srv := newTestApp(t, Options{}, nil)
	client := noRedirectClient(t)
	id := createSession(t, client, srv)
	base := srv.URL + "/calendars/" + id

	_, state := postJSON(t, client, base+"/toggle", url.Values{"date": {"2024-02-07"}}, nil)
	_, state = postJSON(t, client, base+"/toggle", url.Values{"date": {"2024-02-05"}}, nil)
	assert.Equal(t, []string{"2024-02-05", "2024-02-07"}, state.Dates)
	assert.Equal(t, []string{"2024-02-05", "2024-02-07"}, state.LastChange)

	_, state = postJSON(t, client, base+"/toggle", url.Values{"date": {"2024-02-05"}}, nil)
	assert.Equal(t, []string{"2024-02-07"}, state.Dates)
	assert.Equal(t, []string{"2024-02-07"}, state.LastChange)

	_, state = postJSON(t, client, base+"/clear", nil, nil)
	assert.Empty(t, state.Dates)
	assert.Empty(t, state.LastChange)
	assert.NotNil(t, state.LastChange)
}

func sendJSON(t *testing.T, client *http.Client, target, body string) (*http.Response, StateResponse) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, target, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var state StateResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	}
	return resp, state
}

func TestJSONBodyEvents(t *testing.T) {
	_, srv := newTestApp(t, Options{}, nil)
	client := noRedirectClient(t)
	id := createSession(t, client, srv)
	base := srv.URL + "/calendars/" + id

	resp, state := sendJSON(t, client, base+"/toggle", `{"date": "2024-02-05"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"2024-02-05"}, state.Dates)
	assert.Equal(t, []string{"2024-02-05"}, state.LastChange)

	_, state = sendJSON(t, client, base+"/add", `{"date": "2024-02-09"}`)
	require.NotNil(t, state.Valid)
	assert.True(t, *state.Valid)
	assert.Equal(t, []string{"2024-02-05", "2024-02-09"}, state.Dates)

	_, state = sendJSON(t, client, base+"/remove", `{"date": "2024-02-05"}`)
	assert.Equal(t, []string{"2024-02-09"}, state.Dates)

	_, state = sendJSON(t, client, base+"/month", `{"year": 2024, "month": 7}`)
	assert.Equal(t, 2024, state.Year)
	assert.Equal(t, 7, state.Month)

	// Events without arguments accept an empty JSON body.
	resp, state = sendJSON(t, client, base+"/clear", ``)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, state.Dates)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"Malformed body", "/toggle", `{"date": `},
		{"Wrong type", "/toggle", `{"date": 5}`},
		{"Month without year", "/month", `{"month": 3}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := sendJSON(t, client, base+tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestFormPostRedirects(t *testing.T) {
	_, srv := newTestApp(t, Options{}, nil)
	client := noRedirectClient(t)
	id := createSession(t, client, srv)

	resp, err := client.PostForm(srv.URL+"/calendars/"+id+"/toggle", url.Values{"date": {"2024-02-05"}})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/calendars/"+id, resp.Header.Get("Location"))
}

func TestWeekdaysRespectsConstraints(t *testing.T) {
	opts := Options{Selector: datepicker.Config{MinDate: "2024-02-10"}}
	_, srv := newTestApp(t, opts, nil)
	client := noRedirectClient(t)
	id := createSession(t, client, srv)

	_, state := postJSON(t, client, srv.URL+"/calendars/"+id+"/weekdays", nil, nil)
	assert.Len(t, state.Dates, 14)
	assert.Equal(t, "2024-02-12", state.Dates[0])

	_, state = postJSON(t, client, srv.URL+"/calendars/"+id+"/toggle", url.Values{"date": {"2024-02-05"}}, nil)
	assert.NotContains(t, state.Dates, "2024-02-05")
}

func TestNavigation(t *testing.T) {
	_, srv := newTestApp(t, Options{}, nil)
	client := noRedirectClient(t)
	id := createSession(t, client, srv)
	base := srv.URL + "/calendars/" + id

	_, state := postJSON(t, client, base+"/next", nil, nil)
	assert.Equal(t, 2024, state.Year)
	assert.Equal(t, 3, state.Month)

	_, state = postJSON(t, client, base+"/month", url.Values{"year": {"2024"}, "month": {"13"}}, nil)
	assert.Equal(t, 2025, state.Year)
	assert.Equal(t, 1, state.Month)

	_, state = postJSON(t, client, base+"/today", nil, nil)
	assert.Equal(t, 2, state.Month)

	resp, _ := postJSON(t, client, base+"/month", url.Values{"year": {"x"}, "month": {"1"}}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = postJSON(t, client, base+"/month", url.Values{"month": {"1"}}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAddRemove(t *testing.T) {
	opts := Options{Selector: datepicker.Config{DisableWeekends: true}}
	_, srv := newTestApp(t, opts, nil)
	client := noRedirectClient(t)
	id := createSession(t, client, srv)
	base := srv.URL + "/calendars/" + id

	// add skips the disabled check
	_, state := postJSON(t, client, base+"/add", url.Values{"date": {"2024-02-10"}}, nil)
	require.NotNil(t, state.Valid)
	assert.True(t, *state.Valid)
	assert.Equal(t, []string{"2024-02-10"}, state.Dates)
	assert.Empty(t, state.LastChange)

	_, state = postJSON(t, client, base+"/remove", url.Values{"date": {"10/02/2024"}}, nil)
	require.NotNil(t, state.Valid)
	assert.False(t, *state.Valid)
	assert.Equal(t, []string{"2024-02-10"}, state.Dates)
}

func TestSetAndGetDates(t *testing.T) {
	_, srv := newTestApp(t, Options{}, nil)
	client := noRedirectClient(t)
	id := createSession(t, client, srv)
	base := srv.URL + "/calendars/" + id

	req, err := http.NewRequest(http.MethodPut, base+"/dates",
		strings.NewReader(`{"dates": ["2024-02-09", "bad", "2024-02-01", "2024-02-09"]}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	var state StateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	resp.Body.Close()

	assert.Equal(t, []string{"2024-02-01", "2024-02-09"}, state.Dates)
	assert.Equal(t, []string{"bad"}, state.Rejected)
	assert.Empty(t, state.LastChange, "SetSelectedDates must not fire OnChange")

	resp, err = client.Get(base + "/dates")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	resp.Body.Close()
	assert.Equal(t, []string{"2024-02-01", "2024-02-09"}, state.Dates)

	req, _ = http.NewRequest(http.MethodPut, base+"/dates", strings.NewReader(`{not json`))
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCloseCalendar(t *testing.T) {
	app, srv := newTestApp(t, Options{}, nil)
	client := noRedirectClient(t)
	id := createSession(t, client, srv)
	base := srv.URL + "/calendars/" + id

	postJSON(t, client, base+"/toggle", url.Values{"date": {"2024-02-05"}}, nil)

	req, _ := http.NewRequest(http.MethodDelete, base, nil)
	resp, err := client.Do(req)
	require.NoError(t, err)
	var body struct {
		Dates []string `json:"dates"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()

	assert.Equal(t, []string{"2024-02-05"}, body.Dates)
	assert.Equal(t, 0, app.Len())

	resp, err = client.Get(base + "/dates")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnknownSession(t *testing.T) {
	_, srv := newTestApp(t, Options{}, nil)

	resp, err := http.Post(srv.URL+"/calendars/nope/toggle", "application/x-www-form-urlencoded", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "calendar not found", body.Error)
}

func TestCSRFProtection(t *testing.T) {
	opts := Options{CSRFKey: []byte(strings.Repeat("k", 32))}
	_, srv := newTestApp(t, opts, nil)
	client := noRedirectClient(t)
	id := createSession(t, client, srv)
	base := srv.URL + "/calendars/" + id

	resp, err := client.Get(base)
	require.NoError(t, err)
	resp.Body.Close()
	token := resp.Header.Get("X-CSRF-Token")
	require.NotEmpty(t, token)

	resp, _ = postJSON(t, client, base+"/toggle", url.Values{"date": {"2024-02-05"}}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, state := postJSON(t, client, base+"/toggle", url.Values{"date": {"2024-02-05"}},
		http.Header{"X-Csrf-Token": {token}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"2024-02-05"}, state.Dates)
}

type holidayCalendar struct{}

func (holidayCalendar) IsWorkday(ctx context.Context, date time.Time) (bool, int, error) {
	return true, 8, nil
}

func (holidayCalendar) GetMonthInfo(ctx context.Context, year int, month time.Month) (*calendar.MonthInfo, error) {
	info := &calendar.MonthInfo{Year: year, Month: month}
	if month == time.February {
		info.Days = []calendar.DayInfo{{
			Date: time.Date(year, month, 12, 0, 0, 0, 0, time.UTC),
			Type: calendar.DayTypeHoliday,
		}}
	}
	return info, nil
}

func (holidayCalendar) GetDayInfo(ctx context.Context, date time.Time) (*calendar.DayInfo, error) {
	return &calendar.DayInfo{Date: date}, nil
}

func TestHolidaysFromCalendar(t *testing.T) {
	opts := Options{Selector: datepicker.Config{DisableHolidays: true}}
	_, srv := newTestApp(t, opts, holidayCalendar{})
	client := noRedirectClient(t)
	id := createSession(t, client, srv)

	_, state := postJSON(t, client, srv.URL+"/calendars/"+id+"/toggle", url.Values{"date": {"2024-02-12"}}, nil)
	assert.Empty(t, state.Dates)

	_, state = postJSON(t, client, srv.URL+"/calendars/"+id+"/weekdays", nil, nil)
	assert.Len(t, state.Dates, 20)
	assert.NotContains(t, state.Dates, "2024-02-12")
}

func TestPruneIdle(t *testing.T) {
	app := NewApp(Options{Now: func() time.Time { return fixedNow }}, nil, zap.NewNop())
	_, err := app.CreateSession(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, app.PruneIdle(time.Hour))

	app.now = func() time.Time { return fixedNow.Add(2 * time.Hour) }
	assert.Equal(t, 1, app.PruneIdle(time.Hour))
	assert.Equal(t, 0, app.Len())
}
