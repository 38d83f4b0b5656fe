package pipeline

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Run and job identifiers are ULIDs: a 48-bit millisecond timestamp followed
// by 80 random bits, Crockford Base32 encoded into 26 characters. IDs minted
// in the same millisecond carry an increasing sequence in their first random
// bytes so they still sort in creation order.

var (
	idMu    sync.Mutex
	idLast  uint64
	idSeq   uint16
	idClock = func() time.Time { return time.Now() }
)

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// NewRunID returns a new ULID string.
func NewRunID() string {
	idMu.Lock()
	ts := uint64(idClock().UnixMilli())
	if ts == idLast {
		idSeq++
	} else {
		idLast, idSeq = ts, 0
	}
	seq := idSeq
	idMu.Unlock()

	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], ts<<16)
	rand.Read(b[6:])
	binary.BigEndian.PutUint16(b[6:8], seq)
	return encodeCrockford(b)
}

// encodeCrockford writes the 128 bits of b as 26 five-bit digits, most
// significant first. The leading digit carries only the top three bits.
func encodeCrockford(b [16]byte) string {
	hi := binary.BigEndian.Uint64(b[0:8])
	lo := binary.BigEndian.Uint64(b[8:16])

	var out [26]byte
	for i := 25; i >= 0; i-- {
		out[i] = crockford[lo&31]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out[:])
}
