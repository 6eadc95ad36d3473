package domain

import (
	"net/http"
	"path/filepath"
	"strings"
)

// supportedImageTypes maps accepted extensions (lowercase, with dot) to the
// MIME type sent to the model.
var supportedImageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

// PendingFile is an image waiting in the input directory.
type PendingFile struct {
	Name string
	Path string
	Ext  string
}

// Image is the payload handed to the extraction client.
type Image struct {
	Name     string
	MIMEType string
	Data     []byte
}

// IsSupportedImage reports whether name ends with an accepted image
// extension, ignoring case.
func IsSupportedImage(name string) bool {
	_, ok := supportedImageTypes[strings.ToLower(filepath.Ext(name))]
	return ok
}

// NewImage checks that data looks like an image and builds the payload.
// The sniffed type wins over the extension when they disagree.
func NewImage(name string, data []byte) (Image, error) {
	sniffed := http.DetectContentType(data)
	sniffed = strings.ToLower(strings.Split(sniffed, ";")[0])

	if !strings.HasPrefix(sniffed, "image/") {
		return Image{}, ErrUnreadableImage
	}

	mimeType := sniffed
	if _, ok := mimeTypeSet[sniffed]; !ok {
		mimeType = supportedImageTypes[strings.ToLower(filepath.Ext(name))]
		if mimeType == "" {
			return Image{}, ErrUnreadableImage
		}
	}

	return Image{Name: name, MIMEType: mimeType, Data: data}, nil
}

var mimeTypeSet = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/webp": {},
}
