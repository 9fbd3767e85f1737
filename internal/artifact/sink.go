// Package artifact implements the Artifact Sink (spec.md §4.4): a streaming
// writer that pushes HTTP body bytes into the spare firmware slot, never
// buffering the whole image in memory, and tracking progress as it goes.
package artifact

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"

	"github.com/anthropics/hawkbit-go-client/internal/bootloader"
)

// pageSize is the internal buffer size the sink concatenates input into
// before flushing a full page to the spare slot (spec.md §4.4).
const pageSize = 4096

// Sink streams a firmware artifact into a bootloader.SpareSlotWriter.
type Sink struct {
	slot      bootloader.SpareSlotWriter
	slotSize  int64
	page      []byte
	pageLen   int
	written   int64
	offset    int64
	initDone  bool
	hasher    hash.Hash
	algorithm string
}

// New constructs a Sink bound to slot. Init must be called once per poll
// before the first Write (spec.md §4.4 precondition).
func New(slot bootloader.SpareSlotWriter) *Sink {
	return &Sink{slot: slot, slotSize: slot.Size(), page: make([]byte, pageSize)}
}

// Init prepares the sink for a new download, selecting the hash algorithm
// used for post-download verification (sha256 > sha1 > md5 precedence,
// spec.md §9). Init panics if called twice within a poll — a programmer
// error, not a recoverable runtime condition.
func (s *Sink) Init(algorithm string) error {
	if s.initDone {
		panic("artifact: Init called twice in the same poll")
	}
	s.initDone = true
	s.pageLen = 0
	s.written = 0
	s.offset = 0
	s.algorithm = algorithm

	switch algorithm {
	case "sha256":
		s.hasher = sha256.New()
	case "sha1":
		s.hasher = sha1.New()
	case "md5":
		s.hasher = md5.New()
	case "":
		s.hasher = nil
	default:
		return fmt.Errorf("artifact: unsupported hash algorithm %q", algorithm)
	}
	return nil
}

// Write concatenates p into the internal page buffer, flushing full pages
// to the spare slot as they fill. isFinal must be true on exactly the last
// call, at which point any partial tail page is flushed too.
func (s *Sink) Write(p []byte, isFinal bool) error {
	if !s.initDone {
		return errors.New("artifact: Write called before Init")
	}
	if s.written+int64(s.pageLen)+int64(len(p)) > s.slotSize {
		return fmt.Errorf("artifact: write would exceed spare slot capacity (%d bytes)", s.slotSize)
	}

	if s.hasher != nil {
		s.hasher.Write(p)
	}

	for len(p) > 0 {
		n := copy(s.page[s.pageLen:], p)
		s.pageLen += n
		p = p[n:]

		if s.pageLen == len(s.page) {
			if err := s.flush(); err != nil {
				return err
			}
		}
	}

	if isFinal {
		if err := s.flush(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sink) flush() error {
	if s.pageLen == 0 {
		return nil
	}
	n, err := s.slot.WriteAt(s.page[:s.pageLen], s.offset)
	if err != nil {
		return fmt.Errorf("artifact: flash write failed: %w", err)
	}
	s.offset += int64(n)
	s.written += int64(n)
	s.pageLen = 0
	return nil
}

// BytesWritten returns the total bytes flushed to the spare slot so far.
func (s *Sink) BytesWritten() int64 {
	return s.written
}

// VerifyDigest compares the running hash against the expected hex digest.
// Called once the final chunk has landed; a mismatch surfaces as a
// download error before the bootloader swap request (spec.md §12).
func (s *Sink) VerifyDigest(expectedHex string) error {
	if s.hasher == nil || expectedHex == "" {
		return nil
	}
	got := hex.EncodeToString(s.hasher.Sum(nil))
	if got != expectedHex {
		return fmt.Errorf("artifact: %s digest mismatch: got %s want %s", s.algorithm, got, expectedHex)
	}
	return nil
}
