package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/leads/internal/config"
	"github.com/JonMunkholm/leads/internal/core"
	"github.com/JonMunkholm/leads/internal/store/memory"
)

type testEnv struct {
	srv   *Server
	store *memory.Store
	cfg   *config.Config
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, RequestTimeout: 5 * time.Second},
		Upload: config.UploadConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			Timeout:       10 * time.Second,
		},
	}
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}
	st := memory.New()
	svc := core.NewService(st, st, core.ServiceConfig{
		MaxConcurrentImports: cfg.Upload.MaxConcurrent,
		MaxWaitTime:          cfg.Upload.MaxWaitTime,
	})
	return &testEnv{srv: NewServer(svc, st, cfg), store: st, cfg: cfg}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) addStaff(t *testing.T, username string) *core.Staff {
	t.Helper()
	st, err := e.store.CreateStaff(context.Background(), username)
	require.NoError(t, err)
	return st
}

func (e *testEnv) addLead(t *testing.T, l core.Lead) core.Lead {
	t.Helper()
	if l.Status == "" {
		l.Status = core.StatusNew
	}
	require.NoError(t, e.store.Save(context.Background(), &l))
	return l
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, fileName string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/leads/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// ============================================================================
// Health and headers
// ============================================================================

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

// ============================================================================
// Lead CRUD
// ============================================================================

func TestCreateAndGetLead(t *testing.T) {
	env := newTestEnv(t)
	env.addStaff(t, "ada")
	env.addStaff(t, "grace")

	req := jsonRequest(t, http.MethodPost, "/api/leads", map[string]string{
		"first_name":  "  Jane ",
		"last_name":   "Doe",
		"email":       "jane@example.com",
		"status":      "qualified",
		"color_code":  "#28a745",
		"assigned_to": "Grace",
	})
	req.Header.Set("X-Username", "ada")
	rec := env.do(t, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[core.Lead](t, rec)
	assert.Equal(t, "Jane", created.FirstName)
	assert.Equal(t, core.StatusQualified, created.Status)
	require.NotNil(t, created.AssignedTo)
	assert.Equal(t, "grace", created.AssignedTo.Username)
	require.NotNil(t, created.CreatedBy)
	assert.Equal(t, "ada", created.CreatedBy.Username)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/leads/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[core.Lead](t, rec).ID)
}

func TestCreateLead_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, jsonRequest(t, http.MethodPost, "/api/leads", map[string]string{
		"email":       "not-an-email",
		"status":      "bogus",
		"assigned_to": "nobody",
	}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[ErrorResponse](t, rec)
	assert.NotEmpty(t, body.Code)

	fields := make(map[string]bool)
	for _, f := range body.Fields {
		fields[f.Field] = true
	}
	assert.True(t, fields["first_name"], "fields: %+v", body.Fields)
	assert.True(t, fields["email"])
	assert.True(t, fields["status"])
	assert.Equal(t, 0, len(env.store.Snapshot()), "nothing saved")
}

func TestCreateLead_BadJSON(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader(`{"first_name":`))
	rec := env.do(t, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateLead(t *testing.T) {
	env := newTestEnv(t)
	lead := env.addLead(t, core.Lead{FirstName: "Old"})

	rec := env.do(t, jsonRequest(t, http.MethodPut, "/api/leads/1", map[string]string{
		"first_name": "New",
		"status":     "won",
	}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[core.Lead](t, rec)
	assert.Equal(t, lead.ID, got.ID)
	assert.Equal(t, "New", got.FirstName)
	assert.Equal(t, core.StatusWon, got.Status)
}

func TestPatchLead_KeepsOmittedFields(t *testing.T) {
	env := newTestEnv(t)
	ada := env.addStaff(t, "ada")
	env.addLead(t, core.Lead{
		FirstName:   "Jane",
		LastName:    "Doe",
		PhoneNumber: "0801",
		Email:       "jane@example.com",
		ColorCode:   core.ColorGreen,
		AssignedTo:  ada,
	})

	rec := env.do(t, jsonRequest(t, http.MethodPatch, "/api/leads/1", map[string]string{
		"status": "qualified",
	}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[core.Lead](t, rec)
	assert.Equal(t, core.StatusQualified, got.Status)
	assert.Equal(t, "Jane", got.FirstName)
	assert.Equal(t, "Doe", got.LastName)
	assert.Equal(t, "0801", got.PhoneNumber)
	assert.Equal(t, "jane@example.com", got.Email)
	assert.Equal(t, core.ColorGreen, got.ColorCode)
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, "ada", got.AssignedTo.Username)
}

func TestPatchLead_ValidatesMergedInput(t *testing.T) {
	env := newTestEnv(t)
	env.addLead(t, core.Lead{FirstName: "Jane"})

	rec := env.do(t, jsonRequest(t, http.MethodPatch, "/api/leads/1", map[string]string{
		"first_name": "",
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode[ErrorResponse](t, rec).Fields)
}

func TestLeadNotFound(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"get", httptest.NewRequest(http.MethodGet, "/api/leads/42", nil)},
		{"delete", httptest.NewRequest(http.MethodDelete, "/api/leads/42", nil)},
		{"update", jsonRequest(t, http.MethodPut, "/api/leads/42", map[string]string{"first_name": "X"})},
		{"patch", jsonRequest(t, http.MethodPatch, "/api/leads/42", map[string]string{"status": "won"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.req)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, "LEAD001", decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestInvalidLeadID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/leads/abc", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteLead(t *testing.T) {
	env := newTestEnv(t)
	env.addLead(t, core.Lead{FirstName: "Gone"})

	rec := env.do(t, httptest.NewRequest(http.MethodDelete, "/api/leads/1", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, env.store.Snapshot())
}

func TestListLeads_Filters(t *testing.T) {
	env := newTestEnv(t)
	ada := env.addStaff(t, "ada")
	env.addLead(t, core.Lead{FirstName: "Alice", Email: "alice@corp.test", Status: core.StatusWon})
	env.addLead(t, core.Lead{FirstName: "Bob", Remarks: "call alice back", AssignedTo: ada})
	env.addLead(t, core.Lead{FirstName: "Carol", ColorCode: core.ColorRed})

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Carol", "Bob", "Alice"}},
		{"?search=ALICE", []string{"Bob", "Alice"}},
		{"?status=won", []string{"Alice"}},
		{"?color=%23dc3545", []string{"Carol"}},
		{"?staff=1", []string{"Bob"}},
		{"?staff=abc", []string{"Carol", "Bob", "Alice"}},
		{"?status=nope", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/leads"+tt.query, nil))
			require.Equal(t, http.StatusOK, rec.Code)

			body := decode[struct {
				Count int         `json:"count"`
				Leads []core.Lead `json:"leads"`
			}](t, rec)

			names := []string{}
			for _, l := range body.Leads {
				names = append(names, l.FirstName)
			}
			assert.Equal(t, tt.want, names)
			assert.Equal(t, len(tt.want), body.Count)
		})
	}
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	env.addLead(t, core.Lead{FirstName: "A", Status: core.StatusWon})
	env.addLead(t, core.Lead{FirstName: "B", Status: core.StatusWon})
	env.addLead(t, core.Lead{FirstName: "C"})

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/leads/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[core.LeadStats](t, rec)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByStatus[core.StatusWon])
	assert.Equal(t, 1, stats.ByStatus[core.StatusNew])
	assert.Contains(t, stats.ByStatus, core.StatusLost)
}

// ============================================================================
// Actor resolution and auth
// ============================================================================

func TestUnknownActorRejected(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	req.Header.Set("X-Username", "mallory")
	rec := env.do(t, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "LEAD002", decode[ErrorResponse](t, rec).Code)
}

func TestAPIKeyRequired(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	})

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/leads", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = env.do(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "health check stays open")
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, UploadLimit: 1}
	})

	for i := 0; i < 2; i++ {
		rec := env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

// ============================================================================
// Upload
// ============================================================================

func TestUpload_CSV(t *testing.T) {
	env := newTestEnv(t)
	env.addStaff(t, "ada")

	csv := "Name,Phone,Status,Assigned To\n" +
		"Jane Doe,0801,qualified,ADA\n" +
		",0802,new,\n" +
		"Solo,0803,weird,ghost\n"

	req := uploadRequest(t, "leads.csv", []byte(csv))
	req.Header.Set("X-Username", "ada")
	rec := env.do(t, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[UploadResponse](t, rec)
	assert.Equal(t, 3, resp.TotalRows)
	assert.Equal(t, 2, resp.Imported)
	assert.Equal(t, []string{"Row 3: Missing first name, skipped"}, resp.Errors)
	assert.Equal(t, 0, resp.MoreErrors)
	assert.Equal(t, "Successfully imported 2 lead(s).", resp.Messages[0])
	assert.NotEmpty(t, resp.ImportID)

	leads := env.store.Snapshot()
	require.Len(t, leads, 2)
	for _, l := range leads {
		require.NotNil(t, l.CreatedBy)
		assert.Equal(t, "ada", l.CreatedBy.Username)
		assert.Equal(t, resp.ImportID, l.ImportID)
	}
}

func TestUpload_ErrorPreview(t *testing.T) {
	env := newTestEnv(t)

	var b strings.Builder
	b.WriteString("first_name,email\n")
	for i := 0; i < 8; i++ {
		b.WriteString(",x@example.com\n")
	}

	rec := env.do(t, uploadRequest(t, "blank.csv", []byte(b.String())))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[UploadResponse](t, rec)
	assert.Equal(t, 0, resp.Imported)
	assert.Len(t, resp.Errors, errorPreviewLimit)
	assert.Equal(t, 3, resp.MoreErrors)
	assert.Len(t, resp.AllErrors, 8)
	assert.Equal(t, "... and 3 more errors.", resp.Messages[len(resp.Messages)-1])
}

func TestUpload_Fatal(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		fileName string
		content  string
		want     string
	}{
		{"unsupported suffix", "leads.pdf", "x", core.MsgUnsupportedFormat},
		{"empty file", "leads.csv", "", core.MsgFileEmpty},
		{"no name column", "leads.csv", "phone,email\n1,a@b.c\n", core.ErrNoNameColumn.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, uploadRequest(t, tt.fileName, []byte(tt.content)))

			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			resp := decode[UploadResponse](t, rec)
			assert.Equal(t, []string{tt.want}, resp.AllErrors)
			assert.Equal(t, 0, resp.Imported)
		})
	}
}

func TestUpload_NoFile(t *testing.T) {
	env := newTestEnv(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("other", "value"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/leads/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := env.do(t, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FILE004", decode[ErrorResponse](t, rec).Code)
}

func TestUpload_TooLarge(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Upload.MaxFileSize = 64 })

	big := "first_name\n" + strings.Repeat("Someone\n", 100)
	rec := env.do(t, uploadRequest(t, "big.csv", []byte(big)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE001", decode[ErrorResponse](t, rec).Code)
}

// ============================================================================
// Download
// ============================================================================

func TestDownload_CSV(t *testing.T) {
	env := newTestEnv(t)
	env.addLead(t, core.Lead{FirstName: "Jane", LastName: "Doe", Status: core.StatusWon, ColorCode: core.ColorGreen})
	env.addLead(t, core.Lead{FirstName: "Other"})

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/leads/download?status=won", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="nissie_leads.csv"`, rec.Header().Get("Content-Disposition"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "First Name,Last Name,"))
	assert.Contains(t, lines[1], "Jane,Doe")
	assert.Contains(t, lines[1], ",won,#28a745,")
}

func TestDownload_UnknownFormatFallsBackToCSV(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/leads/download?format=pdf", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
}

func TestDownloadTemplate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/leads/download/template", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="leads_template.csv"`, rec.Header().Get("Content-Disposition"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "first_name,last_name,phone_number,email,point_of_contact,prospect_response,remarks,status,source,assigned_to", lines[0])
}

func TestTemplateRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.addStaff(t, "username")

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/leads/download/template", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, uploadRequest(t, "leads_template.csv", rec.Body.Bytes()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[UploadResponse](t, rec)
	assert.Equal(t, 1, resp.Imported)
	assert.Empty(t, resp.AllErrors)

	leads := env.store.Snapshot()
	require.Len(t, leads, 1)
	assert.Equal(t, "John", leads[0].FirstName)
	assert.Equal(t, "username", leads[0].AssignedUsername())
}
