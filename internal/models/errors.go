package models

import "errors"

// Ошибки уровня приложения
var (
	// Thread store
	ErrUnknownThread = errors.New("unknown thread")

	// Language model / generation pipeline
	ErrGenerationUnavailable = errors.New("story generation is unavailable")
	ErrValidationExhausted   = errors.New("no draft passed safety validation")
	ErrClassicNotFound       = errors.New("classic tale not found")
	ErrMoralGenerationFailed = errors.New("moral generation failed")
	ErrMalformedModelOutput  = errors.New("malformed model output")

	// Request validation
	ErrEmptyInput        = errors.New("user input is empty")
	ErrInputTooLong      = errors.New("user input is too long")
	ErrInvalidLengthTier = errors.New("invalid length tier")
)
