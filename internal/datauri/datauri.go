// Package datauri parses and formats image data URIs of the form
// data:image/<subtype>;base64,<payload>.
package datauri

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
)

// ErrMalformed is returned for anything that is not an image data URI.
var ErrMalformed = errors.New("invalid data URL format")

// Image is a decoded data URI.
type Image struct {
	MIMEType string
	Data     []byte
}

// Parse splits a data URI into its MIME type and decoded payload.
func Parse(uri string) (*Image, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, ErrMalformed
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok || payload == "" {
		return nil, ErrMalformed
	}
	mimeType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return nil, ErrMalformed
	}
	subtype, ok := strings.CutPrefix(mimeType, "image/")
	if !ok || !isWord(subtype) {
		return nil, ErrMalformed
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &Image{MIMEType: mimeType, Data: data}, nil
}

// MIMEType returns the MIME type of uri, or fallback when it cannot be read.
func MIMEType(uri, fallback string) string {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return fallback
	}
	mimeType, _, ok := strings.Cut(rest, ";base64,")
	if !ok || !strings.HasPrefix(mimeType, "image/") {
		return fallback
	}
	return mimeType
}

// Format encodes data as a base64 data URI.
func Format(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Dimensions decodes only the image header and returns its size.
func (img *Image) Dimensions() (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

func isWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}
