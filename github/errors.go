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

package github

import (
	"errors"
	"fmt"
)

// Fetch errors. The messages are shown to end users as-is.
var (
	// ErrNoFiles indicates the repository tree produced no indexable files.
	ErrNoFiles = errors.New("No files found in the repository. Please check the repository URL and access permissions.")

	// ErrRepositoryNotFound indicates GitHub answered 404.
	ErrRepositoryNotFound = errors.New("Repository not found. Please check the URL and ensure you have access to the repository.")

	// ErrAccessDenied indicates GitHub answered 401 or 403.
	ErrAccessDenied = errors.New("Access denied. Please check your GitHub token for private repositories.")
)

// APIError is an unexpected GitHub response. Rate limiting and server errors
// are marked retryable.
type APIError struct {
	StatusCode int
	Message    string
	Retryable  bool
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("github api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("github api: status %d: %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether err is a transient GitHub failure.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	return false
}
