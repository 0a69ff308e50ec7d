// Defines functions to encode/decode messages between client and server.
// Requests and replies are JSON, except for the binary bodies of the
// encrypted login and certification steps.

package application

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxBodySize bounds every request and reply body.
const MaxBodySize = 64 * 1024

// Content types used on the wire.
const (
	ContentTypeJSON   = "application/json"
	ContentTypeBinary = "application/octet-stream"
)

// ErrBodyTooLarge is returned for a body over MaxBodySize.
var ErrBodyTooLarge = errors.New("[application] Message body is too large")

// ReadBody reads a whole message body, up to MaxBodySize.
func ReadBody(r io.Reader) ([]byte, error) {
	buf, err := io.ReadAll(io.LimitReader(r, MaxBodySize+1))
	if err != nil {
		return nil, err
	}
	if len(buf) > MaxBodySize {
		return nil, ErrBodyTooLarge
	}
	return buf, nil
}

// UnmarshalBody reads a JSON-encoded body into v.
func UnmarshalBody(r io.Reader, v interface{}) error {
	buf, err := ReadBody(r)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, v)
}

// WriteJSON writes v as a JSON reply with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
	_, err = w.Write(buf)
	return err
}

// WriteBinary writes buf as a binary reply with status 200.
func WriteBinary(w http.ResponseWriter, buf []byte) error {
	w.Header().Set("Content-Type", ContentTypeBinary)
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(buf)
	return err
}

// A StatusError is a reply with an unexpected status.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	if len(e.Body) > 0 {
		return fmt.Sprintf("[application] Unexpected status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("[application] Unexpected status %d", e.Status)
}
