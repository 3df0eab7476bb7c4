package remote

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"sheetsync/internal/record"
)

var (
	errMalformed = errors.New("malformed response: missing boolean success field")
	errMissingID = errors.New("malformed response: create succeeded without an id")
	errBadID     = errors.New("malformed response: id is neither a string nor a number")
)

// Result is the outcome of a write. Exactly one of the two shapes holds:
// Ok (Err == nil, ID set for creates) or Err (a *record.ApplicationError or
// *record.ConnectionError).
type Result struct {
	ID  string
	Err error
}

// OK reports whether the store accepted the write.
func (r Result) OK() bool {
	return r.Err == nil
}

// wireResult is the raw response body. Fields are decoded loosely and
// validated in decodeResult.
type wireResult struct {
	Success json.RawMessage `json:"success"`
	ID      any             `json:"id"`
	Error   any             `json:"error"`
	Message any             `json:"message"`
}

// decodeResult validates a write response once, at the boundary.
func decodeResult(action string, body []byte) (Result, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var wr wireResult
	if err := dec.Decode(&wr); err != nil {
		return Result{}, fmt.Errorf("decoding response: %w", err)
	}

	// null unmarshals into a bool without error, so go through a pointer.
	var success *bool
	if len(wr.Success) == 0 || json.Unmarshal(wr.Success, &success) != nil || success == nil {
		return Result{}, errMalformed
	}

	if !*success {
		msg := messageOf(wr.Error)
		if msg == "" {
			msg = messageOf(wr.Message)
		}
		return Result{Err: &record.ApplicationError{Op: action, Message: msg}}, nil
	}
	switch wr.ID.(type) {
	case nil, string, json.Number:
	default:
		return Result{}, errBadID
	}
	return Result{ID: record.CanonicalID(wr.ID)}, nil
}

func messageOf(v any) string {
	switch m := v.(type) {
	case nil:
		return ""
	case string:
		return m
	default:
		return fmt.Sprint(m)
	}
}
