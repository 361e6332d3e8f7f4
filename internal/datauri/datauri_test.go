package datauri

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		wantMIME string
		wantData string
		wantErr  bool
	}{
		{
			name:     "jpeg",
			uri:      "data:image/jpeg;base64,aGVsbG8=",
			wantMIME: "image/jpeg",
			wantData: "hello",
		},
		{
			name:     "png",
			uri:      "data:image/png;base64,aGk=",
			wantMIME: "image/png",
			wantData: "hi",
		},
		{name: "missing scheme", uri: "image/jpeg;base64,aGk=", wantErr: true},
		{name: "not base64 encoded", uri: "data:image/jpeg,aGk=", wantErr: true},
		{name: "not an image", uri: "data:text/plain;base64,aGk=", wantErr: true},
		{name: "empty payload", uri: "data:image/jpeg;base64,", wantErr: true},
		{name: "bad payload", uri: "data:image/jpeg;base64,***", wantErr: true},
		{name: "subtype with symbols", uri: "data:image/svg+xml;base64,aGk=", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Parse(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformed))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMIME, img.MIMEType)
			assert.Equal(t, tt.wantData, string(img.Data))
		})
	}
}

func TestMIMEType(t *testing.T) {
	assert.Equal(t, "image/png", MIMEType("data:image/png;base64,aGk=", "image/jpeg"))
	assert.Equal(t, "image/jpeg", MIMEType("garbage", "image/jpeg"))
	assert.Equal(t, "image/jpeg", MIMEType("data:text/plain;base64,aGk=", "image/jpeg"))
}

func TestFormatRoundTrip(t *testing.T) {
	uri := Format("image/png", []byte("pixels"))
	assert.Equal(t, "data:image/png;base64,cGl4ZWxz", uri)

	img, err := Parse(uri)
	require.NoError(t, err)
	assert.Equal(t, []byte("pixels"), img.Data)
}

func TestDimensions(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 4))
	src.Set(1, 1, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	img, err := Parse(Format("image/png", buf.Bytes()))
	require.NoError(t, err)

	w, h, err := img.Dimensions()
	require.NoError(t, err)
	assert.Equal(t, 3, w)
	assert.Equal(t, 4, h)
}
