package domain

import "errors"

var (
	// Configuration errors
	ErrMissingCredential = errors.New("GOOGLE_API_KEY is not set")

	// Extraction errors
	ErrExtraction      = errors.New("extraction failed")
	ErrUnreadableImage = errors.New("file is not a readable image")

	// Archive errors
	ErrArchive           = errors.New("archive failed")
	ErrDestinationExists = errors.New("destination file already exists")

	// Ledger errors
	ErrPersist = errors.New("ledger persist failed")

	// Run errors
	ErrRunInProgress  = errors.New("a run is already in progress")
	ErrFileNotPending = errors.New("file is not pending")
)
