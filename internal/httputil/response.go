package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"lexcorpus/internal/domain/services"
)

// RespondJSON writes a JSON response with the given status code.
// The body is marshaled before any header is written so an encoding
// failure still produces a clean 500.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

// Problem is an RFC 7807 problem document. Extensions are written as
// top-level members next to the standard ones.
type Problem struct {
	Type       string
	Title      string
	Status     int
	Detail     string
	Instance   string
	Extensions map[string]interface{}
}

// NewProblem builds a problem for status with a human readable detail
func NewProblem(status int, detail string) *Problem {
	return &Problem{
		Type:   problemType(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
}

// With adds an extension member
func (p *Problem) With(key string, value interface{}) *Problem {
	if p.Extensions == nil {
		p.Extensions = make(map[string]interface{})
	}
	p.Extensions[key] = value
	return p
}

// MarshalJSON flattens extensions into the document
func (p Problem) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(p.Extensions)+5)
	for k, v := range p.Extensions {
		m[k] = v
	}
	m["type"] = p.Type
	m["title"] = p.Title
	m["status"] = p.Status
	if p.Detail != "" {
		m["detail"] = p.Detail
	}
	if p.Instance != "" {
		m["instance"] = p.Instance
	}
	return json.Marshal(m)
}

// Write sends the problem as application/problem+json
func (p *Problem) Write(w http.ResponseWriter) {
	payload, err := json.Marshal(p)
	if err != nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	w.Write(payload)
}

// RespondError writes a problem response without extensions
func RespondError(w http.ResponseWriter, status int, detail string) {
	NewProblem(status, detail).Write(w)
}

var problemSections = map[int]string{
	http.StatusBadRequest:            "section-15.5.1",
	http.StatusUnauthorized:          "section-15.5.2",
	http.StatusForbidden:             "section-15.5.4",
	http.StatusNotFound:              "section-15.5.5",
	http.StatusConflict:              "section-15.5.10",
	http.StatusRequestEntityTooLarge: "section-15.5.14",
	http.StatusInternalServerError:   "section-15.6.1",
	http.StatusServiceUnavailable:    "section-15.6.4",
}

// problemType points at the RFC 9110 definition of the status code
func problemType(status int) string {
	if section, ok := problemSections[status]; ok {
		return "https://www.rfc-editor.org/rfc/rfc9110#" + section
	}
	return "about:blank"
}

// RespondFile writes an export as a download
func RespondFile(w http.ResponseWriter, file *services.ExportFile) {
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(file.Data)
}
