package imagecodec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/apperror"
)

// Image is an uploaded photo together with its detected MIME type.
type Image struct {
	Data     []byte
	MIMEType string
}

var supportedTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
	"image/heic": {},
}

// ErrTooLarge is wrapped when a stream exceeds the read limit.
var ErrTooLarge = errors.New("image exceeds size limit")

// Read consumes r and detects the content type. A limit <= 0 disables the
// size check.
func Read(r io.Reader, limit int64) (*Image, error) {
	if r == nil {
		return nil, apperror.New(apperror.KindEncoding, "no input")
	}
	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindEncoding, "read image", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, apperror.Wrap(apperror.KindEncoding, "read image", ErrTooLarge)
	}
	if len(data) == 0 {
		return nil, apperror.New(apperror.KindEncoding, "empty image")
	}
	mime := mimetype.Detect(data)
	return &Image{Data: data, MIMEType: baseType(mime.String())}, nil
}

// IsSupported reports whether mime is an accepted upload type.
func IsSupported(mime string) bool {
	_, ok := supportedTypes[baseType(mime)]
	return ok
}

// Supported reports whether the detected type of img is accepted.
func (img *Image) Supported() bool {
	return img != nil && IsSupported(img.MIMEType)
}

// Base64 returns the standard base64 payload of the image.
func (img *Image) Base64() string {
	return base64.StdEncoding.EncodeToString(img.Data)
}

// DataURI returns the image as data:<mime>;base64,<payload>.
func (img *Image) DataURI() string {
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(img.MIMEType) + base64.StdEncoding.EncodedLen(len(img.Data)))
	b.WriteString("data:")
	b.WriteString(img.MIMEType)
	b.WriteString(";base64,")
	b.WriteString(img.Base64())
	return b.String()
}

// Payload strips the data URI prefix and returns the base64 payload.
func Payload(uri string) (string, error) {
	_, payload, err := splitDataURI(uri)
	return payload, err
}

// DecodeDataURI parses a base64 data URI back into an Image.
func DecodeDataURI(uri string) (*Image, error) {
	mime, payload, err := splitDataURI(uri)
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindEncoding, "decode data uri", err)
	}
	if mime == "" {
		mime = mimetype.Detect(data).String()
	}
	return &Image{Data: data, MIMEType: baseType(mime)}, nil
}

// Reader returns a reader over the image bytes.
func (img *Image) Reader() io.Reader {
	return bytes.NewReader(img.Data)
}

func splitDataURI(uri string) (string, string, error) {
	if !strings.HasPrefix(uri, "data:") {
		return "", "", apperror.New(apperror.KindEncoding, "not a data uri")
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return "", "", apperror.New(apperror.KindEncoding, "data uri has no payload separator")
	}
	mime, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return "", "", apperror.New(apperror.KindEncoding, fmt.Sprintf("data uri %q is not base64 encoded", header))
	}
	return mime, payload, nil
}

func baseType(mime string) string {
	mime, _, _ = strings.Cut(mime, ";")
	return strings.ToLower(strings.TrimSpace(mime))
}
