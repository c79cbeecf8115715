package eventlog

import (
	"errors"
	"io"
	"os"

	"github.com/golang/snappy"
)

// Reader replays the Snapshots appended by a Writer, in order.
type Reader struct {
	file   *os.File
	header *FileHeader
}

// NewReader opens filePath and validates its file header.
func NewReader(filePath string) (*Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, FileHeaderSize)
	if _, err := io.ReadFull(file, buf); err != nil {
		file.Close()
		return nil, err
	}

	header := &FileHeader{}
	if err := header.Deserialize(buf); err != nil {
		file.Close()
		return nil, err
	}

	return &Reader{file: file, header: header}, nil
}

// SnapCount returns the number of snapshots recorded in the header at
// open time (not updated as Next is called).
func (r *Reader) SnapCount() uint64 { return r.header.SnapCount }

// Next reads the next Snapshot from the file, returning io.EOF once
// the file is exhausted.
func (r *Reader) Next() (*Snapshot, error) {
	bhBuf := make([]byte, BlockHeaderSize)
	if _, err := io.ReadFull(r.file, bhBuf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}

	var bh BlockHeader
	if err := bh.Deserialize(bhBuf); err != nil {
		return nil, err
	}

	compressed := make([]byte, bh.CompressedSize)
	if _, err := io.ReadFull(r.file, compressed); err != nil {
		return nil, err
	}

	if checksum(compressed) != bh.Checksum {
		return nil, ErrCorruptedBlock
	}

	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, err
	}
	if uint32(len(raw)) != bh.UncompressedSize {
		return nil, ErrCorruptedBlock
	}

	s := &Snapshot{}
	if err := s.Deserialize(raw); err != nil {
		return nil, err
	}
	return s, nil
}

// All reads every remaining Snapshot in the file.
func (r *Reader) All() ([]*Snapshot, error) {
	var result []*Snapshot
	for {
		s, err := r.Next()
		if err == io.EOF {
			return result, nil
		}
		if err != nil {
			return result, err
		}
		result = append(result, s)
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}
