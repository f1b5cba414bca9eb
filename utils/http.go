package utils

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
)

// Envelope is the body of every API response
type Envelope struct {
	Message string      `json:"message"`
	Status  int         `json:"status"`
	IsError bool        `json:"isError"`
	Body    interface{} `json:"body"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return nil
	}

	return json.NewEncoder(w).Encode(data)
}

// WriteEnvelope writes body wrapped in an Envelope. Statuses of 400 and
// above are flagged as errors.
func WriteEnvelope(w http.ResponseWriter, status int, message string, body interface{}) error {
	return WriteJSON(w, status, Envelope{
		Message: message,
		Status:  status,
		IsError: status >= http.StatusBadRequest,
		Body:    body,
	})
}

// WriteOK writes a 200 OK envelope
func WriteOK(w http.ResponseWriter, message string, body interface{}) error {
	if message == "" {
		message = "success"
	}
	return WriteEnvelope(w, http.StatusOK, message, body)
}

// WriteBadRequest writes a 400 Bad Request envelope with optional details
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]interface{}) error {
	return WriteEnvelope(w, http.StatusBadRequest, message, detailsBody(details))
}

// WriteUnauthorized writes a 401 Unauthorized envelope
func WriteUnauthorized(w http.ResponseWriter, message string) error {
	if message == "" {
		message = "unauthorized"
	}
	return WriteEnvelope(w, http.StatusUnauthorized, message, nil)
}

// WriteForbidden writes a 403 Forbidden envelope with optional details
func WriteForbidden(w http.ResponseWriter, message string, details map[string]interface{}) error {
	if message == "" {
		message = "access denied"
	}
	return WriteEnvelope(w, http.StatusForbidden, message, detailsBody(details))
}

// WriteNotFound writes a 404 Not Found envelope
func WriteNotFound(w http.ResponseWriter, message string) error {
	if message == "" {
		message = "resource not found"
	}
	return WriteEnvelope(w, http.StatusNotFound, message, nil)
}

// WriteInternalServerError writes a 500 envelope
func WriteInternalServerError(w http.ResponseWriter, message string) error {
	if message == "" {
		message = "internal server error"
	}
	return WriteEnvelope(w, http.StatusInternalServerError, message, nil)
}

// WriteError writes an error envelope with the given status
func WriteError(w http.ResponseWriter, status int, message string, details map[string]interface{}) error {
	return WriteEnvelope(w, status, message, detailsBody(details))
}

func detailsBody(details map[string]interface{}) interface{} {
	if len(details) == 0 {
		return nil
	}
	return details
}

// ClientIP returns the host of the connection's remote address. Forwarding
// headers are not consulted here; when the deployment trusts its proxy the
// router rewrites RemoteAddr from them before this runs.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// BearerToken returns the token of an "Authorization: Bearer" header
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
