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

import (
	"fmt"
	"regexp"
	"strings"
)

var repoURLPattern = regexp.MustCompile(`^https://github\.com/([\w-]+)/([\w-]+)$`)

// ParseRepoURL validates a repository URL and splits it into owner and repo.
//
// Only URLs of the exact form https://github.com/<owner>/<repo> are accepted,
// where owner and repo consist of word characters and dashes. Trailing slashes,
// ".git" suffixes, query strings and other hosts are rejected.
func ParseRepoURL(url string) (owner, repo string, err error) {
	m := repoURLPattern.FindStringSubmatch(url)
	if m == nil {
		return "", "", ErrInvalidRepoURL
	}
	return m[1], m[2], nil
}

// ValidateRepoURL reports whether url is an acceptable repository URL.
func ValidateRepoURL(url string) error {
	_, _, err := ParseRepoURL(url)
	return err
}

// ValidateProject validates a Project according to domain rules.
//
// Validation rules:
//   - Name must not be blank
//   - RepoURL must be a valid repository URL
func ValidateProject(project *Project) error {
	if project == nil {
		return fmt.Errorf("%w: project is nil", ErrEmptyProjectName)
	}
	if strings.TrimSpace(project.Name) == "" {
		return ErrEmptyProjectName
	}
	return ValidateRepoURL(project.RepoURL)
}

// ValidateFileReferences checks every reference carries a file name.
func ValidateFileReferences(refs []FileReference) error {
	for i, ref := range refs {
		if strings.TrimSpace(ref.FileName) == "" {
			return fmt.Errorf("%w: reference %d has no file name", ErrInvalidFileReference, i)
		}
	}
	return nil
}

// ValidateQuestion validates a Question before it is saved.
//
// NOT validated:
//   - UserId (taken from the authenticated session)
//   - FileReferences may be empty
func ValidateQuestion(q *Question) error {
	if q == nil {
		return fmt.Errorf("%w: question is nil", ErrEmptyQuestion)
	}
	if q.ProjectId == 0 {
		return ErrInvalidProjectID
	}
	if strings.TrimSpace(q.Question) == "" {
		return ErrEmptyQuestion
	}
	if strings.TrimSpace(q.Answer) == "" {
		return ErrEmptyAnswer
	}
	return ValidateFileReferences(q.FileReferences)
}

// ValidateCommit validates a Commit before insertion.
func ValidateCommit(c *Commit) error {
	if c == nil || strings.TrimSpace(c.Hash) == "" {
		return ErrEmptyCommitHash
	}
	if c.ProjectId == 0 {
		return ErrInvalidProjectID
	}
	return nil
}
