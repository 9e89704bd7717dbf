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

package commits

import "errors"

var (
	// ErrProjectNotFound indicates the project to poll doesn't exist or was deleted.
	ErrProjectNotFound = errors.New("Project not found")

	// ErrCommitRepositoryRequired indicates that a commit repository is required.
	ErrCommitRepositoryRequired = errors.New("commit repository is required")

	// ErrProjectRepositoryRequired indicates that a project repository is required.
	ErrProjectRepositoryRequired = errors.New("project repository is required")

	// ErrSourceRequired indicates that a commit source is required.
	ErrSourceRequired = errors.New("commit source is required")

	// ErrSummarizerRequired indicates that a summarizer is required.
	ErrSummarizerRequired = errors.New("summarizer is required")
)
