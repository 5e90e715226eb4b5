package imagecomp

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// MediaTypeJPEG is the only format Compress produces.
const MediaTypeJPEG = "image/jpeg"

const base64Marker = ";base64,"

// EncodedImage is an inline, self-describing image payload in data URL form:
// "data:<media type>;base64,<content>".
type EncodedImage string

// NewEncodedImage wraps raw encoded bytes into a data URL.
func NewEncodedImage(mediaType string, data []byte) EncodedImage {
	return EncodedImage("data:" + mediaType + base64Marker + base64.StdEncoding.EncodeToString(data))
}

// Valid reports whether the payload is a non-empty base64 image data URL.
func (e EncodedImage) Valid() bool {
	mediaType, payload, ok := e.split()
	return ok && strings.HasPrefix(mediaType, "image/") && payload != ""
}

// MediaType returns the declared media type, or "" when malformed.
func (e EncodedImage) MediaType() string {
	mediaType, _, ok := e.split()
	if !ok {
		return ""
	}
	return mediaType
}

// Decode returns the raw image bytes.
func (e EncodedImage) Decode() ([]byte, error) {
	_, payload, ok := e.split()
	if !ok {
		return nil, fmt.Errorf("malformed image data url")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	return data, nil
}

// Size returns the decoded byte length of the payload.
func (e EncodedImage) Size() int {
	_, payload, ok := e.split()
	if !ok {
		return 0
	}
	padding := strings.Count(payload[max(0, len(payload)-2):], "=")
	return base64.StdEncoding.DecodedLen(len(payload)) - padding
}

func (e EncodedImage) split() (mediaType, payload string, ok bool) {
	rest, found := strings.CutPrefix(string(e), "data:")
	if !found {
		return "", "", false
	}
	mediaType, payload, found = strings.Cut(rest, base64Marker)
	if !found {
		return "", "", false
	}
	return mediaType, payload, true
}
