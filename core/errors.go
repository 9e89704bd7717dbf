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

package core

import "errors"

// Domain validation errors.
// The messages are shown to end users as-is.
var (
	// ErrInvalidRepoURL indicates a repository URL is not of the form https://github.com/owner/repo.
	ErrInvalidRepoURL = errors.New("Invalid GitHub repository URL format. Expected format: https://github.com/owner/repo")

	// ErrEmptyProjectName indicates the project name is missing.
	ErrEmptyProjectName = errors.New("Project name is required")

	// ErrInvalidProjectID indicates a zero project ID.
	ErrInvalidProjectID = errors.New("project id is required")

	// ErrEmptyQuestion indicates the question text is missing.
	ErrEmptyQuestion = errors.New("question cannot be empty")

	// ErrEmptyAnswer indicates the answer text is missing.
	ErrEmptyAnswer = errors.New("answer cannot be empty")

	// ErrInvalidFileReference indicates a file reference without a file name.
	ErrInvalidFileReference = errors.New("invalid file reference")

	// ErrEmptyCommitHash indicates a commit without a hash.
	ErrEmptyCommitHash = errors.New("commit hash cannot be empty")
)
