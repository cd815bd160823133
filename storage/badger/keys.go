package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/fixbase/fixbase/core"
)

// Key prefixes for different data types
const (
	atomRecordPrefix     = "atmrec"
	atomKeywordPrefix    = "atmkw"
	fingerprintPrefix    = "fprec"
	jobRecordPrefix      = "jobrec"
	reviewRecordPrefix   = "revrec"
	relationRecordPrefix = "relrec"
	relationFromPrefix   = "relfrm"
	relationToPrefix     = "relto"
	failureRecordPrefix  = "failrec"
)

// makeAtomKey generates a key for an atom by ID.
func makeAtomKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", atomRecordPrefix, id))
}

// makeKeywordKey generates a composite key for the keyword inverted index.
// Format: prefix:token:atomID
func makeKeywordKey(token string, atomID core.ID) []byte {
	prefix := atomKeywordPrefix + ":" + token + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(atomID))
	return buf
}

// makePartialKeywordKey generates a partial key for keyword lookups.
// Format: prefix:token:
func makePartialKeywordKey(token string) []byte {
	return []byte(atomKeywordPrefix + ":" + token + ":")
}

// makeFingerprintKey generates a key for a fingerprint by content hash.
func makeFingerprintKey(hash string) []byte {
	return []byte(fingerprintPrefix + ":" + hash)
}

// makeJobKey generates a key for an ingestion job by UUID.
func makeJobKey(id string) []byte {
	return []byte(jobRecordPrefix + ":" + id)
}

// makeReviewKey generates a key for a review entry by ID.
func makeReviewKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", reviewRecordPrefix, id))
}

// makeRelationKey generates a key for a relation by ID.
func makeRelationKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", relationRecordPrefix, id))
}

// makeRelationEndpointKey generates a composite key for the from/to indices.
// Format: prefix:atomID:relationID
func makeRelationEndpointKey(prefix string, atomID, relationID core.ID) []byte {
	prefixBytes := []byte(prefix + ":")
	buf := make([]byte, len(prefixBytes)+16)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(atomID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(relationID))
	return buf
}

// makePartialRelationEndpointKey generates a partial key for endpoint queries.
// Format: prefix:atomID
func makePartialRelationEndpointKey(prefix string, atomID core.ID) []byte {
	prefixBytes := []byte(prefix + ":")
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(atomID))
	return buf
}

// makeFailureKey generates a key for a failed ingestion record by ID.
func makeFailureKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", failureRecordPrefix, id))
}
