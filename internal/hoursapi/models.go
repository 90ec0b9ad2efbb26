package hoursapi

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// APITime handles the timestamps of the hours API.
// The backend emits Python isoformat(), with or without offset and fraction.
type APITime struct {
	time.Time
}

var apiTimeFormats = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// UnmarshalJSON implements json.Unmarshaler for APITime
func (t *APITime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}

	var parseErr error
	for _, format := range apiTimeFormats {
		parsed, err := time.Parse(format, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
		parseErr = err
	}

	return fmt.Errorf("APITime: %w", parseErr)
}

// MarshalJSON implements json.Marshaler for APITime
func (t APITime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// TaskType is the kind of work an hour entry records
type TaskType string

const (
	TaskTypeTask    TaskType = "tarea"
	TaskTypeMeeting TaskType = "reunion"
)

// Valid reports whether t is accepted by the backend
func (t TaskType) Valid() bool {
	return t == TaskTypeTask || t == TaskTypeMeeting
}

// HourEntry is a registered block of hours as listed by GET /horas/
type HourEntry struct {
	ID              int64           `json:"id"`
	Date            string          `json:"fecha"`
	ProjectID       int64           `json:"proyecto_id"`
	ProjectName     string          `json:"proyecto_nombre"`
	ProjectColor    string          `json:"proyecto_color"`
	Hours           decimal.Decimal `json:"horas"`
	Description     string          `json:"descripcion"`
	TaskType        TaskType        `json:"tipo_tarea"`
	TaskTypeDisplay string          `json:"tipo_tarea_display"`
	CreatedAt       APITime         `json:"created_at"`
	UpdatedAt       APITime         `json:"updated_at"`
}

// DateEntry is the short form returned by the hours-by-date endpoint
type DateEntry struct {
	ID          int64           `json:"id"`
	Project     string          `json:"proyecto"`
	Hours       decimal.Decimal `json:"horas"`
	TaskType    TaskType        `json:"tipo_tarea"`
	Description string          `json:"descripcion"`
}

// HourRequest is the body of create and update calls
type HourRequest struct {
	Date        string          `json:"fecha"`
	ProjectID   int64           `json:"proyecto"`
	Hours       decimal.Decimal `json:"horas"`
	Description string          `json:"descripcion"`
	TaskType    TaskType        `json:"tipo_tarea,omitempty"`
}

// CreatedHour is the payload of a successful create
type CreatedHour struct {
	ID          int64           `json:"id"`
	Date        string          `json:"fecha"`
	ProjectName string          `json:"proyecto_nombre"`
	Hours       decimal.Decimal `json:"horas"`
}

// envelope wraps mutation responses: {"success": bool, "message"|"error": string, "data": ...}
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Holiday as listed by GET /feriados/
type Holiday struct {
	ID   int64  `json:"id"`
	Date string `json:"fecha"`
	Name string `json:"nombre"`
}

// Period is a working period with its hour targets
type Period struct {
	ID             int64           `json:"id"`
	Name           string          `json:"nombre"`
	StartDate      string          `json:"fecha_inicio"`
	EndDate        string          `json:"fecha_fin"`
	TargetHours    decimal.Decimal `json:"horas_objetivo"`
	MaxHoursPerDay decimal.Decimal `json:"horas_max_dia"`
	Active         bool            `json:"activo"`
}

type activePeriodResponse struct {
	Success bool    `json:"success"`
	Period  *Period `json:"periodo"`
	Message string  `json:"message,omitempty"`
}

// Filter narrows ListHours; zero fields are omitted
type Filter struct {
	From      string
	To        string
	ProjectID int64
}

func (f Filter) query() url.Values {
	q := url.Values{}
	if f.From != "" {
		q.Set("fecha_inicio", f.From)
	}
	if f.To != "" {
		q.Set("fecha_fin", f.To)
	}
	if f.ProjectID != 0 {
		q.Set("proyecto", fmt.Sprintf("%d", f.ProjectID))
	}
	return q
}

// APIError is returned for non-2xx responses
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying the request may succeed
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
