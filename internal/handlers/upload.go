package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/apperror"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/imagecodec"
)

// MaxUploadSize bounds a single uploaded image.
const MaxUploadSize = 10 << 20

// maxRequestSize leaves room for a before/after pair and form fields.
const maxRequestSize = 2*MaxUploadSize + 1<<20

var errMissingFile = errors.New("missing file")

// limitBody caps the request body before multipart parsing.
func limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestSize)
		c.Next()
	}
}

// readImage loads the form file field. It responds and returns false on
// failure; a missing optional file returns (nil, true).
func readImage(c *gin.Context, field string, required bool) (*imagecodec.Image, bool) {
	file, err := c.FormFile(field)
	if err != nil {
		if isTooLarge(err) {
			tooLarge(c)
			return nil, false
		}
		if !required && errors.Is(err, http.ErrMissingFile) {
			return nil, true
		}
		writeError(c, apperror.Wrap(apperror.KindNoImage, field+" file is required", errMissingFile), nil)
		return nil, false
	}
	if file.Size > MaxUploadSize {
		tooLarge(c)
		return nil, false
	}

	src, err := file.Open()
	if err != nil {
		writeError(c, apperror.Wrap(apperror.KindEncoding, "unable to open image", err), nil)
		return nil, false
	}
	defer src.Close()

	img, err := imagecodec.Read(src, MaxUploadSize)
	if err != nil {
		if errors.Is(err, imagecodec.ErrTooLarge) {
			tooLarge(c)
			return nil, false
		}
		writeError(c, err, nil)
		return nil, false
	}
	if !img.Supported() {
		c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
			"error": "รองรับเฉพาะไฟล์รูปภาพ JPEG, PNG, WEBP, GIF หรือ HEIC",
			"kind":  apperror.KindEncoding.String(),
			"type":  img.MIMEType,
		})
		return nil, false
	}
	return img, true
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

func tooLarge(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
		"error": "ไฟล์มีขนาดใหญ่เกินไป",
		"kind":  apperror.KindEncoding.String(),
	})
}
