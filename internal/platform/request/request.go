// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It centralizes body decoding so every route applies the same size limit and
reports the same error for malformed JSON.
*/
package requestutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/taibuivan/bazaar/internal/platform/constants"
	"github.com/taibuivan/bazaar/internal/platform/validate"
)

/*
DecodeJSON reads the request body and decodes it into target.

An empty body leaves target untouched. Bodies larger than
[constants.MaxRequestBodyBytes] or containing trailing data are rejected.

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(writer http.ResponseWriter, request *http.Request, target any) error {
	if request.Body == nil || request.Body == http.NoBody {
		return nil
	}

	decoder := json.NewDecoder(http.MaxBytesReader(writer, request.Body, constants.MaxRequestBodyBytes))
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return validate.ErrInvalidJSON
	}

	// A second value after the object means the payload was not a single JSON document.
	if decoder.More() {
		return validate.ErrInvalidJSON
	}
	return nil
}
