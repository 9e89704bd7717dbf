package badger

import (
	"encoding/binary"

	"github.com/poiesic/stackalchemy/core"
)

// Key prefixes for different data types
const (
	userRecordPrefix      = "usrrec:"
	userEmailPrefix       = "usrmail:"
	userIDSeq             = "usrseq"
	projectRecordPrefix   = "prjrec:"
	projectIDSeq          = "prjseq"
	userProjectPrefix     = "u2p:"
	projectUserPrefix     = "p2u:"
	embeddingRecordPrefix = "embrec:"
	embeddingOwnerPrefix  = "embown:"
	embeddingIDSeq        = "embseq"
	commitRecordPrefix    = "cmtrec:"
	commitIDSeq           = "cmtseq"
	questionRecordPrefix  = "qstrec:"
	questionIDSeq         = "qstseq"
)

// makeKey concatenates a prefix with big-endian encoded IDs so that keys
// sharing a prefix iterate in numeric order.
func makeKey(prefix string, ids ...core.ID) []byte {
	buf := make([]byte, len(prefix)+8*len(ids))
	offset := copy(buf, prefix)
	for _, id := range ids {
		binary.BigEndian.PutUint64(buf[offset:], uint64(id))
		offset += 8
	}
	return buf
}

// idAt decodes the big-endian ID stored at offset in key.
func idAt(key []byte, offset int) core.ID {
	return core.ID(binary.BigEndian.Uint64(key[offset : offset+8]))
}

func makeUserKey(id core.ID) []byte {
	return makeKey(userRecordPrefix, id)
}

func makeUserEmailKey(email string) []byte {
	return []byte(userEmailPrefix + email)
}

func makeProjectKey(id core.ID) []byte {
	return makeKey(projectRecordPrefix, id)
}

// makeUserProjectKey generates the access link key.
// Format: prefix:userID:projectID
func makeUserProjectKey(userID, projectID core.ID) []byte {
	return makeKey(userProjectPrefix, userID, projectID)
}

// makeProjectUserKey generates the reverse access link key used on purge.
// Format: prefix:projectID:userID
func makeProjectUserKey(projectID, userID core.ID) []byte {
	return makeKey(projectUserPrefix, projectID, userID)
}

// makeEmbeddingKey generates the primary embedding key.
// Format: prefix:projectID:embeddingID
func makeEmbeddingKey(projectID, id core.ID) []byte {
	return makeKey(embeddingRecordPrefix, projectID, id)
}

// makeEmbeddingOwnerKey maps an embedding ID to its project.
func makeEmbeddingOwnerKey(id core.ID) []byte {
	return makeKey(embeddingOwnerPrefix, id)
}

// makeCommitKey generates the commit key.
// Format: prefix:projectID:hash
func makeCommitKey(projectID core.ID, hash string) []byte {
	return append(makeKey(commitRecordPrefix, projectID), hash...)
}

// makeQuestionKey generates the question key.
// Format: prefix:projectID:questionID
func makeQuestionKey(projectID, id core.ID) []byte {
	return makeKey(questionRecordPrefix, projectID, id)
}
