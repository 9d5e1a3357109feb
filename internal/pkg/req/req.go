/*
Package req provides helpers for decoding client-supplied JSON into typed structs.

Decoding failures are mapped to errs codes so callers can report them to the client directly.
*/
package req

import (
	"bytes"
	"encoding/json"
	"errors"

	"kchat/internal/pkg/errs"
)

// DecodePayload decodes a single JSON value from data into dst.
// Missing data, a JSON null, syntax errors, type mismatches, and trailing content are rejected.
func DecodePayload(data []byte, dst any) *errs.CustomError {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return errs.NewError(errs.ErrInvalidParams)
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))

	if err := decoder.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return errs.NewError(errs.ErrInvalidParams)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	return nil
}
