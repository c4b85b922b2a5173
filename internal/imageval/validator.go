// Package imageval validates inline base64 image data URIs.
package imageval

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/qw31415/claude-vision-api/internal/domain"
)

// MaxSizeMB is the upstream limit on a single image.
const MaxSizeMB = 20

// MaxSizeBytes is MaxSizeMB in bytes.
const MaxSizeBytes = MaxSizeMB * 1024 * 1024

var dataURIPattern = regexp.MustCompile(`^data:image/(jpeg|jpg|png|gif|webp);base64,(.+)$`)

var (
	// ErrInvalidFormat is returned when the input is not a supported image data URI.
	ErrInvalidFormat = fmt.Errorf("%w: Invalid image format. Must be base64 encoded image.", domain.ErrInvalidImage)
	// ErrTooLarge is returned when the estimated decoded size exceeds MaxSizeBytes.
	ErrTooLarge = fmt.Errorf("%w: Image too large. Maximum size is %dMB.", domain.ErrInvalidImage, MaxSizeMB)
)

// Image is a validated inline image.
type Image struct {
	MediaType string
	Data      string
	Size      int
}

// Format returns the image subtype, e.g. "png".
func (i *Image) Format() string {
	return strings.TrimPrefix(i.MediaType, "image/")
}

// Block converts the image to a content block.
func (i *Image) Block() domain.ContentBlock {
	return domain.ImageBlock(i.MediaType, i.Data)
}

// Validate checks a data URI of the form data:image/<subtype>;base64,<payload>.
func Validate(dataURI string) (*Image, error) {
	match := dataURIPattern.FindStringSubmatch(dataURI)
	if match == nil {
		return nil, ErrInvalidFormat
	}

	subtype, payload := match[1], match[2]
	// The estimate is fractional; compare scaled by 4 to keep it exact.
	if len(payload)*3 > MaxSizeBytes*4 {
		return nil, ErrTooLarge
	}
	size := len(payload) * 3 / 4

	return &Image{
		MediaType: "image/" + subtype,
		Data:      payload,
		Size:      size,
	}, nil
}

// Message returns the user-facing part of a validation error.
func Message(err error) string {
	return strings.TrimPrefix(err.Error(), domain.ErrInvalidImage.Error()+": ")
}
