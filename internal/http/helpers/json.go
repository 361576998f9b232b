package helpers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
)

const maxBody = 1 << 20

// ErrNotJSON: el Content-Type no es application/json.
var ErrNotJSON = errors.New("content type is not application/json")

// IsJSON reporta si el request declara un body JSON.
func IsJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.EqualFold(mt, "application/json")
}

// ReadJSON decodifica JSON de forma tolerante (no falla por campos
// desconocidos) y limita el body a 1MB. Un body vacío no es error.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if !IsJSON(r) {
		return ErrNotJSON
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// WriteJSON escribe una respuesta JSON estándar.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
