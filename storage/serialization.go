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

package storage

import (
	"fmt"

	"github.com/poiesic/stackalchemy/core"
)

// serializer is the shape shared by the core *MUS values.
type serializer[T any] interface {
	Marshal(v T, bs []byte) int
	Unmarshal(bs []byte) (T, int, error)
	Size(v T) int
}

func marshal[T any](s serializer[T], v T) []byte {
	buf := make([]byte, s.Size(v))
	s.Marshal(v, buf)
	return buf
}

func unmarshal[T any](s serializer[T], data []byte) (*T, error) {
	v, _, err := s.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return &v, nil
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	return marshal(core.IDMUS, id)
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return id, nil
}

// MarshalUser serializes a User to bytes.
func MarshalUser(user *core.User) []byte {
	return marshal(core.UserMUS, *user)
}

// UnmarshalUser deserializes a User from bytes.
func UnmarshalUser(data []byte) (*core.User, error) {
	return unmarshal[core.User](core.UserMUS, data)
}

// MarshalProject serializes a Project to bytes.
func MarshalProject(project *core.Project) []byte {
	return marshal(core.ProjectMUS, *project)
}

// UnmarshalProject deserializes a Project from bytes.
func UnmarshalProject(data []byte) (*core.Project, error) {
	return unmarshal[core.Project](core.ProjectMUS, data)
}

// MarshalUserToProject serializes an access link to bytes.
func MarshalUserToProject(link *core.UserToProject) []byte {
	return marshal(core.UserToProjectMUS, *link)
}

// UnmarshalUserToProject deserializes an access link from bytes.
func UnmarshalUserToProject(data []byte) (*core.UserToProject, error) {
	return unmarshal[core.UserToProject](core.UserToProjectMUS, data)
}

// MarshalEmbedding serializes a SourceCodeEmbedding to bytes.
func MarshalEmbedding(embedding *core.SourceCodeEmbedding) []byte {
	return marshal(core.SourceCodeEmbeddingMUS, *embedding)
}

// UnmarshalEmbedding deserializes a SourceCodeEmbedding from bytes.
func UnmarshalEmbedding(data []byte) (*core.SourceCodeEmbedding, error) {
	return unmarshal[core.SourceCodeEmbedding](core.SourceCodeEmbeddingMUS, data)
}

// MarshalCommit serializes a Commit to bytes.
func MarshalCommit(commit *core.Commit) []byte {
	return marshal(core.CommitMUS, *commit)
}

// UnmarshalCommit deserializes a Commit from bytes.
func UnmarshalCommit(data []byte) (*core.Commit, error) {
	return unmarshal[core.Commit](core.CommitMUS, data)
}

// MarshalQuestion serializes a Question to bytes.
func MarshalQuestion(question *core.Question) []byte {
	return marshal(core.QuestionMUS, *question)
}

// UnmarshalQuestion deserializes a Question from bytes.
func UnmarshalQuestion(data []byte) (*core.Question, error) {
	return unmarshal[core.Question](core.QuestionMUS, data)
}
