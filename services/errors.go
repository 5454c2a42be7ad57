package services

import "errors"

var (
	ErrAuthInvalidCredentials = errors.New("invalid email or password")

	ErrCompetitionNotFound = errors.New("competition not found")
	ErrValidationFailed    = errors.New("validation failed")

	ErrSnapshotNotFound            = errors.New("snapshot not found")
	ErrSnapshotCompetitionMismatch = errors.New("snapshot belongs to another competition")
)
