/***** BEGIN LICENSE BLOCK *****
# This Source Code Form is subject to the terms of the Mozilla Public
# License, v. 2.0. If a copy of the MPL was not distributed with this file,
# You can obtain one at http://mozilla.org/MPL/2.0/.
# ***** END LICENSE BLOCK *****/

// Package logstream implements a resumable read cursor for a log file
// being tailed: a journal records the last seek offset and a hash of
// the trailing bytes read, so a restarted ingest run can verify it is
// resuming the same logical stream (not a rotated-out file reusing the
// same name) before trusting its saved offset.
package logstream

import (
	"bytes"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/ringbuf"
)

// tailBufferLen: only persist a journal once we've read at least this
// many bytes of trailing context, so the saved hash has enough material
// to be a meaningful tamper-check.
const tailBufferLen = 500

// StreamPosition is the on-disk journal shape: where we left off, and a
// hash of the trailing bytes read, to detect a same-named file having
// been rotated out from under us.
type StreamPosition struct {
	Filename     string `json:"filename"`
	SeekPosition int64  `json:"seek_position"`
	Hash         string `json:"last_hash"`

	journalPath string
	tail        *ringbuf.Ring
}

// LoadJournal reads a StreamPosition from journalPath, returning a zero
// StreamPosition (not an error) if no journal file exists yet.
func LoadJournal(journalPath string) (*StreamPosition, error) {
	sp := &StreamPosition{journalPath: journalPath, tail: ringbuf.New(tailBufferLen)}

	f, err := os.Open(journalPath)
	if err != nil {
		if os.IsNotExist(err) {
			return sp, nil
		}
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, f); err != nil {
		return nil, err
	}
	if buf.Len() == 0 {
		return sp, nil
	}
	if err := json.Unmarshal(buf.Bytes(), sp); err != nil {
		return nil, fmt.Errorf("logstream: parse journal %s: %w", journalPath, err)
	}
	sp.journalPath = journalPath
	sp.tail = ringbuf.New(tailBufferLen)
	return sp, nil
}

// ObserveRead records n freshly-read bytes for the trailing-hash check;
// call this as the tailer consumes the file.
func (s *StreamPosition) ObserveRead(data []byte, newSeekPosition int64) {
	s.tail.Write(data)
	s.SeekPosition = newSeekPosition
}

// IsSameStream reports whether the on-disk file at s.Filename still
// matches the hash recorded in the journal, i.e. whether SeekPosition
// can be trusted as a resume point rather than treating the file as
// having been rotated/truncated/replaced.
func (s *StreamPosition) IsSameStream() bool {
	if s.Hash == "" {
		return true
	}
	f, err := os.Open(s.Filename)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.Size() < s.SeekPosition {
		return false
	}
	readStart := s.SeekPosition - tailBufferLen
	if readStart < 0 {
		readStart = 0
	}
	if _, err := f.Seek(readStart, io.SeekStart); err != nil {
		return false
	}
	buf := make([]byte, s.SeekPosition-readStart)
	if _, err := io.ReadFull(f, buf); err != nil {
		return false
	}
	h := sha1.Sum(buf)
	return fmt.Sprintf("%x", h) == s.Hash
}

// SaveJournal persists the current position to disk, skipping the write
// until at least tailBufferLen bytes of trailing context have been
// observed.
func (s *StreamPosition) SaveJournal() error {
	if s.journalPath == "" {
		return nil
	}
	if s.tail.Size() < tailBufferLen {
		return nil
	}

	tail := s.tail.Bytes()
	if len(tail) > 0 {
		h := sha1.Sum(tail)
		s.Hash = fmt.Sprintf("%x", h)
	} else {
		s.Hash = ""
	}

	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("logstream: marshal journal: %w", err)
	}

	f, err := os.OpenFile(s.journalPath, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0660)
	if err != nil {
		return fmt.Errorf("logstream: open journal %s: %w", s.journalPath, err)
	}
	defer f.Close()

	if _, err := f.Write(b); err != nil {
		return fmt.Errorf("logstream: write journal %s: %w", s.journalPath, err)
	}
	return nil
}

// Reset clears the cursor back to the start of a (possibly new) file.
func (s *StreamPosition) Reset(filename string) {
	s.Filename = filename
	s.SeekPosition = 0
	s.Hash = ""
	s.tail = ringbuf.New(tailBufferLen)
}
