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
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the records persisted by the embedded backend.
// Field order is the wire order; append new fields at the end of a struct.
// Timestamps are stored as Unix microseconds, a zero DeletedAt means "not deleted".

var (
	IDMUS                  = idMUS{}
	UserMUS                = userMUS{}
	ProjectMUS             = projectMUS{}
	UserToProjectMUS       = userToProjectMUS{}
	SourceCodeEmbeddingMUS = sourceCodeEmbeddingMUS{}
	CommitMUS              = commitMUS{}
	QuestionMUS            = questionMUS{}
)

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (idMUS) Size(v ID) int {
	return varint.Uint64.Size(uint64(v))
}

// Field helpers. Each unmarshal helper advances *n and is a no-op once *err is set.

func timeToMicros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func microsToTime(us int64) time.Time {
	if us == 0 {
		return time.Time{}
	}
	return time.UnixMicro(us).UTC()
}

func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(timeToMicros(t), bs)
}

func sizeTime(t time.Time) int {
	return varint.Int64.Size(timeToMicros(t))
}

func unmarshalTime(bs []byte, n *int, err *error) time.Time {
	if *err != nil {
		return time.Time{}
	}
	us, m, e := varint.Int64.Unmarshal(bs[*n:])
	*n += m
	*err = e
	return microsToTime(us)
}

func unmarshalString(bs []byte, n *int, err *error) string {
	if *err != nil {
		return ""
	}
	s, m, e := ord.String.Unmarshal(bs[*n:])
	*n += m
	*err = e
	return s
}

func unmarshalID(bs []byte, n *int, err *error) ID {
	if *err != nil {
		return 0
	}
	id, m, e := IDMUS.Unmarshal(bs[*n:])
	*n += m
	*err = e
	return id
}

func unmarshalLen(bs []byte, n *int, err *error) int {
	if *err != nil {
		return 0
	}
	l, m, e := varint.Uint64.Unmarshal(bs[*n:])
	*n += m
	*err = e
	return int(l)
}

func marshalVector(v []float32, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(len(v)), bs)
	for _, f := range v {
		n += varint.Uint32.Marshal(math.Float32bits(f), bs[n:])
	}
	return n
}

func sizeVector(v []float32) (size int) {
	size = varint.Uint64.Size(uint64(len(v)))
	for _, f := range v {
		size += varint.Uint32.Size(math.Float32bits(f))
	}
	return size
}

func unmarshalVector(bs []byte, n *int, err *error) []float32 {
	l := unmarshalLen(bs, n, err)
	if *err != nil || l == 0 {
		return nil
	}
	out := make([]float32, l)
	for i := range out {
		bits, m, e := varint.Uint32.Unmarshal(bs[*n:])
		*n += m
		if e != nil {
			*err = e
			return nil
		}
		out[i] = math.Float32frombits(bits)
	}
	return out
}

type userMUS struct{}

func (userMUS) Marshal(v User, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.Email, bs[n:])
	n += ord.String.Marshal(v.Name, bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	return n
}

func (userMUS) Unmarshal(bs []byte) (v User, n int, err error) {
	v.Id = unmarshalID(bs, &n, &err)
	v.Email = unmarshalString(bs, &n, &err)
	v.Name = unmarshalString(bs, &n, &err)
	v.CreatedAt = unmarshalTime(bs, &n, &err)
	return v, n, err
}

func (userMUS) Size(v User) int {
	return IDMUS.Size(v.Id) +
		ord.String.Size(v.Email) +
		ord.String.Size(v.Name) +
		sizeTime(v.CreatedAt)
}

type projectMUS struct{}

func deletedAtMicros(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return timeToMicros(*t)
}

func (projectMUS) Marshal(v Project, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.Name, bs[n:])
	n += ord.String.Marshal(v.RepoURL, bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	n += varint.Int64.Marshal(deletedAtMicros(v.DeletedAt), bs[n:])
	return n
}

func (projectMUS) Unmarshal(bs []byte) (v Project, n int, err error) {
	v.Id = unmarshalID(bs, &n, &err)
	v.Name = unmarshalString(bs, &n, &err)
	v.RepoURL = unmarshalString(bs, &n, &err)
	v.CreatedAt = unmarshalTime(bs, &n, &err)
	deletedAt := unmarshalTime(bs, &n, &err)
	if err == nil && !deletedAt.IsZero() {
		v.DeletedAt = &deletedAt
	}
	return v, n, err
}

func (projectMUS) Size(v Project) int {
	return IDMUS.Size(v.Id) +
		ord.String.Size(v.Name) +
		ord.String.Size(v.RepoURL) +
		sizeTime(v.CreatedAt) +
		varint.Int64.Size(deletedAtMicros(v.DeletedAt))
}

type userToProjectMUS struct{}

func (userToProjectMUS) Marshal(v UserToProject, bs []byte) (n int) {
	n = IDMUS.Marshal(v.UserId, bs)
	n += IDMUS.Marshal(v.ProjectId, bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	return n
}

func (userToProjectMUS) Unmarshal(bs []byte) (v UserToProject, n int, err error) {
	v.UserId = unmarshalID(bs, &n, &err)
	v.ProjectId = unmarshalID(bs, &n, &err)
	v.CreatedAt = unmarshalTime(bs, &n, &err)
	return v, n, err
}

func (userToProjectMUS) Size(v UserToProject) int {
	return IDMUS.Size(v.UserId) + IDMUS.Size(v.ProjectId) + sizeTime(v.CreatedAt)
}

type sourceCodeEmbeddingMUS struct{}

func (sourceCodeEmbeddingMUS) Marshal(v SourceCodeEmbedding, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.ProjectId, bs[n:])
	n += ord.String.Marshal(v.FileName, bs[n:])
	n += ord.String.Marshal(v.SourceCode, bs[n:])
	n += ord.String.Marshal(v.Summary, bs[n:])
	n += ord.String.Marshal(v.Checksum, bs[n:])
	n += marshalVector(v.Vector, bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	return n
}

func (sourceCodeEmbeddingMUS) Unmarshal(bs []byte) (v SourceCodeEmbedding, n int, err error) {
	v.Id = unmarshalID(bs, &n, &err)
	v.ProjectId = unmarshalID(bs, &n, &err)
	v.FileName = unmarshalString(bs, &n, &err)
	v.SourceCode = unmarshalString(bs, &n, &err)
	v.Summary = unmarshalString(bs, &n, &err)
	v.Checksum = unmarshalString(bs, &n, &err)
	v.Vector = unmarshalVector(bs, &n, &err)
	v.CreatedAt = unmarshalTime(bs, &n, &err)
	return v, n, err
}

func (sourceCodeEmbeddingMUS) Size(v SourceCodeEmbedding) int {
	return IDMUS.Size(v.Id) +
		IDMUS.Size(v.ProjectId) +
		ord.String.Size(v.FileName) +
		ord.String.Size(v.SourceCode) +
		ord.String.Size(v.Summary) +
		ord.String.Size(v.Checksum) +
		sizeVector(v.Vector) +
		sizeTime(v.CreatedAt)
}

type commitMUS struct{}

func (commitMUS) Marshal(v Commit, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.ProjectId, bs[n:])
	n += ord.String.Marshal(v.Hash, bs[n:])
	n += ord.String.Marshal(v.Message, bs[n:])
	n += ord.String.Marshal(v.AuthorName, bs[n:])
	n += ord.String.Marshal(v.AuthorAvatar, bs[n:])
	n += marshalTime(v.CommittedAt, bs[n:])
	n += ord.String.Marshal(v.Summary, bs[n:])
	n += marshalTime(v.InsertedAt, bs[n:])
	return n
}

func (commitMUS) Unmarshal(bs []byte) (v Commit, n int, err error) {
	v.Id = unmarshalID(bs, &n, &err)
	v.ProjectId = unmarshalID(bs, &n, &err)
	v.Hash = unmarshalString(bs, &n, &err)
	v.Message = unmarshalString(bs, &n, &err)
	v.AuthorName = unmarshalString(bs, &n, &err)
	v.AuthorAvatar = unmarshalString(bs, &n, &err)
	v.CommittedAt = unmarshalTime(bs, &n, &err)
	v.Summary = unmarshalString(bs, &n, &err)
	v.InsertedAt = unmarshalTime(bs, &n, &err)
	return v, n, err
}

func (commitMUS) Size(v Commit) int {
	return IDMUS.Size(v.Id) +
		IDMUS.Size(v.ProjectId) +
		ord.String.Size(v.Hash) +
		ord.String.Size(v.Message) +
		ord.String.Size(v.AuthorName) +
		ord.String.Size(v.AuthorAvatar) +
		sizeTime(v.CommittedAt) +
		ord.String.Size(v.Summary) +
		sizeTime(v.InsertedAt)
}

type questionMUS struct{}

func (questionMUS) Marshal(v Question, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.ProjectId, bs[n:])
	n += IDMUS.Marshal(v.UserId, bs[n:])
	n += ord.String.Marshal(v.Question, bs[n:])
	n += ord.String.Marshal(v.Answer, bs[n:])
	n += varint.Uint64.Marshal(uint64(len(v.FileReferences)), bs[n:])
	for _, ref := range v.FileReferences {
		n += ord.String.Marshal(ref.FileName, bs[n:])
		n += ord.String.Marshal(ref.SourceCode, bs[n:])
		n += ord.String.Marshal(ref.Summary, bs[n:])
	}
	n += marshalTime(v.CreatedAt, bs[n:])
	return n
}

func (questionMUS) Unmarshal(bs []byte) (v Question, n int, err error) {
	v.Id = unmarshalID(bs, &n, &err)
	v.ProjectId = unmarshalID(bs, &n, &err)
	v.UserId = unmarshalID(bs, &n, &err)
	v.Question = unmarshalString(bs, &n, &err)
	v.Answer = unmarshalString(bs, &n, &err)
	refs := unmarshalLen(bs, &n, &err)
	if err == nil && refs > 0 {
		v.FileReferences = make([]FileReference, refs)
		for i := range v.FileReferences {
			v.FileReferences[i].FileName = unmarshalString(bs, &n, &err)
			v.FileReferences[i].SourceCode = unmarshalString(bs, &n, &err)
			v.FileReferences[i].Summary = unmarshalString(bs, &n, &err)
		}
	}
	v.CreatedAt = unmarshalTime(bs, &n, &err)
	return v, n, err
}

func (questionMUS) Size(v Question) (size int) {
	size = IDMUS.Size(v.Id) +
		IDMUS.Size(v.ProjectId) +
		IDMUS.Size(v.UserId) +
		ord.String.Size(v.Question) +
		ord.String.Size(v.Answer) +
		varint.Uint64.Size(uint64(len(v.FileReferences)))
	for _, ref := range v.FileReferences {
		size += ord.String.Size(ref.FileName) +
			ord.String.Size(ref.SourceCode) +
			ord.String.Size(ref.Summary)
	}
	return size + sizeTime(v.CreatedAt)
}
