package services

import (
	"errors"
	"fmt"
)

// Error categories. Every specific error below wraps exactly one of these so
// callers can classify with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream failure")
	ErrPersistence  = errors.New("persistence failure")
	ErrConflict     = errors.New("conflict")
)

// Worker errors
var (
	ErrWorkerNotFound    = fmt.Errorf("%w: worker", ErrNotFound)
	ErrWorkerBusy        = fmt.Errorf("%w: worker is not available for assignment", ErrConflict)
	ErrWorkerContended   = fmt.Errorf("%w: worker update kept losing to concurrent writers", ErrConflict)
	ErrNoAvailableWorker = errors.New("router: no available worker")
)

// Task errors
var (
	ErrTaskNotFound       = fmt.Errorf("%w: task", ErrNotFound)
	ErrTaskInvalidInput   = fmt.Errorf("%w: task", ErrValidation)
	ErrTaskAlreadyClaimed = fmt.Errorf("%w: task already claimed", ErrConflict)
	ErrInvalidTransition  = fmt.Errorf("%w: invalid task status transition", ErrConflict)
)

// Queue errors
var (
	ErrInvalidBatchSize = fmt.Errorf("%w: batch size must be positive", ErrValidation)
)

// Evolution errors
var (
	ErrInvalidCadence       = fmt.Errorf("%w: unknown evolution cadence", ErrValidation)
	ErrCandidateReadFailed  = fmt.Errorf("%w: could not read evolution candidates", ErrPersistence)
	ErrReasoningUnavailable = fmt.Errorf("%w: reasoning service not configured", ErrUpstream)
	ErrReasoningUnparseable = fmt.Errorf("%w: reasoning service returned an unusable result", ErrUpstream)
)

// Proposal errors
var (
	ErrProposalNotFound      = fmt.Errorf("%w: proposal", ErrNotFound)
	ErrProposalTerminal      = fmt.Errorf("%w: proposal already merged or rejected", ErrConflict)
	ErrInvalidProposalAction = fmt.Errorf("%w: proposal action not allowed from current status", ErrConflict)
	ErrUnknownProposalAction = fmt.Errorf("%w: action must be one of approve, merge, reject", ErrValidation)
)

// Sampler errors
var (
	ErrSnapshotFailed = fmt.Errorf("%w: could not read worker snapshot", ErrPersistence)
)
