// Package id generates time-sortable ULID identifiers for trades. Sorting
// ids sorts by creation time, which keeps the FIFO close ordering cheap and
// makes journal indexes naturally chronological.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	// Seed from crypto/rand so ids are unpredictable; Monotonic keeps ids
	// generated within the same millisecond strictly increasing.
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a fresh ULID string.
func New() string {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), mono)
	if err != nil {
		panic(err)
	}
	return id.String()
}

// Chunk derives the identifier for the nth split-off chunk of parent.
func Chunk(parent string, n int) string {
	return fmt.Sprintf("%s-C%d", parent, n)
}
