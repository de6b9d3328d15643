// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VTA Contributors

package assist

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	vtaerr "github.com/vta-dev/vta/pkg/errors"
)

// DecodeImage validates a base64-encoded request image and returns the raw
// bytes plus MIME type for the captioning call. Malformed base64 or an
// unsupported image format is the caller's error and surfaces as a 400;
// it is never silently defaulted.
func DecodeImage(b64 string) ([]byte, string, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, "", vtaerr.Wrap(err, vtaerr.CodeRequestImageDecodeInvalid, "failed to decode image base64")
	}

	_, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", vtaerr.Wrap(err, vtaerr.CodeRequestImageDecodeInvalid, "failed to decode image data")
	}

	return data, "image/" + format, nil
}
