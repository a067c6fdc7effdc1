// Package validators checks client-supplied values before they reach
// the pipeline
package validators

import (
	"creatorhub/media-api/model"
	"errors"
	"net/http"
	"strings"

	"github.com/spf13/viper"
)

var (
	ErrNoFilename          = errors.New("no filename provided")
	ErrFileNameTooLong     = errors.New("file name is too long")
	ErrFileNameInvalid     = errors.New("file name contains invalid characters")
	ErrFileTypeUnsupported = errors.New("unsupported media type")
	ErrFileSizeInvalid     = errors.New("file size must be bigger than 0")
	ErrFileTooLarge        = errors.New("file too large")
)

const maxFileNameSize = 245

// Media validates the declared properties of a new asset and returns
// the HTTP status to respond with when validation fails.
func Media(filename string, mediaType model.MediaType, fileSize int64) (int, error) {
	if filename == "" {
		return http.StatusBadRequest, ErrNoFilename
	}

	if len(filename) > maxFileNameSize {
		return http.StatusBadRequest, ErrFileNameTooLong
	}

	// The filename ends up in an on-disk path, so anything that could
	// step out of the configured directories is rejected outright.
	if strings.ContainsAny(filename, `/\`) || filename == "." || filename == ".." {
		return http.StatusBadRequest, ErrFileNameInvalid
	}

	if !mediaType.Valid() {
		return http.StatusBadRequest, ErrFileTypeUnsupported
	}

	if fileSize <= 0 {
		return http.StatusBadRequest, ErrFileSizeInvalid
	}

	if fileSize > viper.GetInt64("upload.max_size") {
		return http.StatusRequestEntityTooLarge, ErrFileTooLarge
	}

	return http.StatusOK, nil
}
