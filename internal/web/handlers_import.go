package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/leads/internal/core"
	"github.com/JonMunkholm/leads/internal/logging"
)

// errorPreviewLimit is how many row errors are shown inline after an upload.
const errorPreviewLimit = 5

// multipartMemory is how much of a multipart form is buffered in memory;
// the rest spills to temporary files.
const multipartMemory = 8 << 20

// UploadResponse is the JSON body returned by the upload endpoint.
type UploadResponse struct {
	ImportID   string   `json:"import_id"`
	FileName   string   `json:"file_name"`
	TotalRows  int      `json:"total_rows"`
	Imported   int      `json:"imported"`
	Messages   []string `json:"messages"`
	Errors     []string `json:"errors"`
	MoreErrors int      `json:"more_errors"`
	AllErrors  []string `json:"all_errors"`
}

// newUploadResponse condenses an import result: a success line, the first
// few errors, and a count of the rest.
func newUploadResponse(res *core.ImportResult) UploadResponse {
	resp := UploadResponse{
		ImportID:  res.ImportID,
		FileName:  res.FileName,
		TotalRows: res.TotalRows,
		Imported:  res.Inserted,
		Messages:  []string{},
		Errors:    res.Errors,
		AllErrors: res.Errors,
	}

	if res.Inserted > 0 {
		resp.Messages = append(resp.Messages, fmt.Sprintf("Successfully imported %d lead(s).", res.Inserted))
	}
	if len(res.Errors) > errorPreviewLimit {
		resp.Errors = res.Errors[:errorPreviewLimit]
		resp.MoreErrors = len(res.Errors) - errorPreviewLimit
	}
	resp.Messages = append(resp.Messages, resp.Errors...)
	if resp.MoreErrors > 0 {
		resp.Messages = append(resp.Messages, fmt.Sprintf("... and %d more errors.", resp.MoreErrors))
	}
	return resp
}

// handleUpload imports one multipart "file" field.
// Row problems still return 200; a fatal problem with the file returns 400
// with the same body shape.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			s.respondError(w, r, fmt.Errorf("file too large: limit is %d bytes", maxSize), http.StatusRequestEntityTooLarge)
			return
		}
		s.writeError(w, r, http.StatusBadRequest, "no file provided: invalid form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read upload: %w", err), http.StatusInternalServerError)
		return
	}

	actor := core.ActorFromContext(r.Context())
	res, err := s.service.ImportFile(r.Context(), header.Filename, data, actor)
	if err != nil {
		if errors.Is(err, core.ErrTooManyImports) {
			w.Header().Set("Retry-After", strconv.Itoa(int(s.cfg.Upload.MaxWaitTime.Seconds())))
		}
		s.respondError(w, r, err, 0)
		return
	}

	logging.FromContext(r.Context()).Info("upload processed",
		"import_id", res.ImportID,
		"file", header.Filename,
		"imported", res.Inserted,
		"errors", len(res.Errors),
	)

	status := http.StatusOK
	if res.Fatal {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, newUploadResponse(res))
}

// handleDownload exports the leads matching the list filters as CSV, or as
// a workbook with ?format=excel.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	file, err := s.service.ExportLeads(r.Context(), parseFilter(r), r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeAttachment(w, file.Name, file.ContentType, file.Data)
}

// handleDownloadTemplate serves the blank CSV import template.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	writeAttachment(w, core.TemplateFileName, core.TemplateContentType, core.TemplateCSV())
}

func writeAttachment(w http.ResponseWriter, name, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
