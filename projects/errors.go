// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package projects

import (
	"errors"
	"fmt"

	"github.com/poiesic/stackalchemy/commits"
	"github.com/poiesic/stackalchemy/core"
	"github.com/poiesic/stackalchemy/github"
	"github.com/poiesic/stackalchemy/ingestion"
	"github.com/poiesic/stackalchemy/search"
	"github.com/poiesic/stackalchemy/storage"
)

// Code categorizes a procedure failure.
type Code string

const (
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeBadRequest   Code = "bad_request"
	CodeInternal     Code = "internal"
)

// User-facing messages.
const (
	MsgUnauthorized    = "User not authenticated"
	MsgUserNotFound    = "User not found. Please sign up first."
	MsgDuplicateURL    = "A project with this GitHub URL already exists"
	MsgProjectNotFound = "Project not found"
	MsgCannotDelete    = "Project not found or you do not have permission to delete it"
	MsgInternal        = "An unexpected error occurred"
)

// Error is the only error type returned by Service operations.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// CodeOf returns the code of err, or CodeInternal for errors that are not
// an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// badRequest lists the errors whose own message is shown to the user.
var badRequest = []error{
	core.ErrInvalidRepoURL,
	core.ErrEmptyProjectName,
	core.ErrInvalidProjectID,
	core.ErrEmptyQuestion,
	core.ErrEmptyAnswer,
	core.ErrInvalidFileReference,
	github.ErrNoFiles,
	github.ErrRepositoryNotFound,
	github.ErrAccessDenied,
	ingestion.ErrNothingIndexed,
	search.ErrEmptyQuery,
}

// Normalize converts any error into an *Error. Errors that already are an
// *Error pass through, known domain errors become bad requests or not
// found, and everything else is reported as internal. Normalize(nil) is nil.
func Normalize(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	for _, sentinel := range badRequest {
		if errors.Is(err, sentinel) {
			return newError(CodeBadRequest, sentinel.Error(), err)
		}
	}
	var apiErr *github.APIError
	if errors.As(err, &apiErr) {
		return newError(CodeBadRequest, fmt.Sprintf("GitHub request failed with status %d", apiErr.StatusCode), err)
	}
	if errors.Is(err, commits.ErrProjectNotFound) || errors.Is(err, storage.ErrNotFound) {
		return newError(CodeNotFound, MsgProjectNotFound, err)
	}
	return newError(CodeInternal, MsgInternal, err)
}
