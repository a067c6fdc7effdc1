// Package service contains the chunk upload, assembly and background
// processing pipeline of the application
package service

import "errors"

// Pipeline errors. Handlers match these with errors.Is to pick status
// codes; everything else is treated as an internal error.
var (
	ErrMediaNotFound        = errors.New("media asset not found")
	ErrChunkIndexOutOfRange = errors.New("chunk index out of range")
	ErrChunkWriteFailure    = errors.New("failed to write chunk")
	ErrChunkReadFailure     = errors.New("failed to read chunk")
	ErrIncompleteUpload     = errors.New("upload is incomplete")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrProcessingFailure    = errors.New("processing failed")
	ErrAlreadyProcessed     = errors.New("media already processed")
	ErrQueueFull            = errors.New("processing queue full")
)
