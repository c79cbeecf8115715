package eventlog

import (
	"io"
	"os"
	"sync"

	"github.com/golang/snappy"
)

// Writer appends Snapshots to a single append-only file, one
// snappy-compressed block per snapshot.
type Writer struct {
	mu        sync.Mutex
	file      *os.File
	header    *FileHeader
	snapCount uint64
	closed    bool
}

// NewWriter opens filePath for appending, creating it with a fresh
// FileHeader if it doesn't exist yet.
func NewWriter(filePath string) (*Writer, error) {
	w := &Writer{}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		if err := w.createNewFile(filePath); err != nil {
			return nil, err
		}
	} else {
		if err := w.openExistingFile(filePath); err != nil {
			return nil, err
		}
	}

	return w, nil
}

func (w *Writer) createNewFile(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return err
	}
	w.file = file
	w.header = NewFileHeader()
	if _, err := file.Write(w.header.Serialize()); err != nil {
		file.Close()
		return err
	}
	return nil
}

func (w *Writer) openExistingFile(filePath string) error {
	file, err := os.OpenFile(filePath, os.O_RDWR, 0644)
	if err != nil {
		return err
	}

	buf := make([]byte, FileHeaderSize)
	if _, err := io.ReadFull(file, buf); err != nil {
		file.Close()
		return err
	}

	header := &FileHeader{}
	if err := header.Deserialize(buf); err != nil {
		file.Close()
		return err
	}

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		file.Close()
		return err
	}

	w.file = file
	w.header = header
	w.snapCount = header.SnapCount
	return nil
}

// Write appends one Snapshot as a compressed block.
func (w *Writer) Write(s *Snapshot) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrFileClosed
	}

	raw := s.Serialize()
	compressed := snappy.Encode(nil, raw)

	bh := BlockHeader{
		CompressedSize:   uint32(len(compressed)),
		UncompressedSize: uint32(len(raw)),
		Checksum:         checksum(compressed),
	}

	if _, err := w.file.Write(bh.Serialize()); err != nil {
		return err
	}
	if _, err := w.file.Write(compressed); err != nil {
		return err
	}

	w.snapCount++
	return nil
}

// Sync rewrites the file header with the current snapshot count and
// fsyncs the file.
func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.syncLocked()
}

func (w *Writer) syncLocked() error {
	if w.closed {
		return ErrFileClosed
	}

	w.header.SnapCount = w.snapCount

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.file.Write(w.header.Serialize()); err != nil {
		return err
	}
	if _, err := w.file.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close syncs the header and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	if err := w.syncLocked(); err != nil {
		w.file.Close()
		return err
	}
	w.closed = true
	return w.file.Close()
}

// SnapshotOf packs already-collected values into a Snapshot; now is
// stored as TakenAtUnixNano.
func SnapshotOf(now, avgRLatUS, avgWLatUS int64, activeTenants int, tenants []TenantSnapshot) *Snapshot {
	return &Snapshot{
		TakenAtUnixNano: now,
		AvgReadLatUS:    avgRLatUS,
		AvgWriteLatUS:   avgWLatUS,
		ActiveTenants:   int32(activeTenants),
		Tenants:         tenants,
	}
}
