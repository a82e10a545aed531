package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/convocation/internal/websocket"
)

const maxJSONBytes = 1 << 20

// Clock returns the current time in the service's zone.
type Clock func() time.Time

// ClockIn returns a Clock reading the wall clock in loc.
func ClockIn(loc *time.Location) Clock {
	return func() time.Time { return time.Now().In(loc) }
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a single JSON object from the body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON object")
	}
	return nil
}

func broadcast(hub websocket.Broadcaster, entity, action string, id int64, extra map[string]any) {
	if hub != nil {
		hub.Broadcast(websocket.NewMessage(entity, action, id, extra))
	}
}

// fields holds request values from either a JSON object or a form, so
// resources with optional uploads accept both encodings.
type fields map[string]string

func readFields(w http.ResponseWriter, r *http.Request) (fields, error) {
	ct := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "multipart/form-data"):
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+maxJSONBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, fmt.Errorf("invalid multipart form: %w", err)
		}
		f := fields{}
		for k, vs := range r.MultipartForm.Value {
			if len(vs) > 0 {
				f[k] = vs[0]
			}
		}
		return f, nil
	case strings.HasPrefix(ct, "application/x-www-form-urlencoded"):
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("invalid form: %w", err)
		}
		f := fields{}
		for k := range r.PostForm {
			f[k] = r.PostForm.Get(k)
		}
		return f, nil
	default:
		var raw map[string]any
		if err := decodeJSON(w, r, &raw); err != nil {
			if errors.Is(err, io.EOF) {
				return fields{}, nil
			}
			return nil, errors.New("invalid JSON")
		}
		f := fields{}
		for k, v := range raw {
			switch v := v.(type) {
			case string:
				f[k] = v
			case float64:
				f[k] = strconv.FormatFloat(v, 'f', -1, 64)
			case bool:
				f[k] = strconv.FormatBool(v)
			case nil:
				f[k] = ""
			default:
				return nil, fmt.Errorf("field %s must be a string, number or boolean", k)
			}
		}
		return f, nil
	}
}

func (f fields) str(key string) string {
	return strings.TrimSpace(f[key])
}

func (f fields) has(key string) bool {
	_, ok := f[key]
	return ok
}

func (f fields) integer(key string, fallback int) (int, error) {
	v := f.str(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number", key)
	}
	return n, nil
}

func (f fields) float(key string) (float64, error) {
	n, err := strconv.ParseFloat(f.str(key), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return n, nil
}

func (f fields) boolean(key string) bool {
	b, _ := strconv.ParseBool(f.str(key))
	return b
}

// orEmpty keeps empty lists encoding as [] rather than null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
