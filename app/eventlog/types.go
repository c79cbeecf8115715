// Package eventlog is the throttle's black-box recorder: an append-only
// file of periodic per-tenant utilization/delay snapshots, compressed
// block by block, so an operator can reconstruct "what was this tenant's
// io_delay at 03:14 last night" after the fact.
//
// The file format is a direct descendant of the swamp storage engine's
// .hyd block format: a fixed-size file header, then a sequence of
// snappy-compressed, CRC32-checked blocks — just with one snapshot
// record per block instead of many key/value entries, since each
// snapshot is a single self-contained, already small record.
package eventlog

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

const (
	// MagicBytes identifies a valid throttle event log file.
	MagicBytes = "IOTL"

	// CurrentVersion is the file format version this package writes
	// and the only one it reads.
	CurrentVersion uint16 = 1

	// FileHeaderSize is the fixed size of the file header.
	FileHeaderSize = 32

	// BlockHeaderSize is the fixed size of each block header.
	BlockHeaderSize = 12
)

var (
	ErrInvalidMagic   = errors.New("eventlog: invalid magic bytes")
	ErrUnsupportedVer = errors.New("eventlog: unsupported file version")
	ErrCorruptedBlock = errors.New("eventlog: block checksum mismatch")
	ErrFileClosed     = errors.New("eventlog: file is closed")
)

// FileHeader is the 32-byte header written once at file creation.
type FileHeader struct {
	Magic      [4]byte
	Version    uint16
	Flags      uint16
	CreatedAt  int64
	SnapCount  uint64
	Reserved   [8]byte
}

func NewFileHeader() *FileHeader {
	return &FileHeader{
		Magic:   [4]byte{'I', 'O', 'T', 'L'},
		Version: CurrentVersion,
	}
}

func (h *FileHeader) Serialize() []byte {
	buf := make([]byte, FileHeaderSize)
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint16(buf[6:8], h.Flags)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(h.CreatedAt))
	binary.LittleEndian.PutUint64(buf[16:24], h.SnapCount)
	copy(buf[24:32], h.Reserved[:])
	return buf
}

func (h *FileHeader) Deserialize(buf []byte) error {
	if len(buf) < FileHeaderSize {
		return errors.New("eventlog: buffer too small for file header")
	}
	copy(h.Magic[:], buf[0:4])
	if string(h.Magic[:]) != MagicBytes {
		return ErrInvalidMagic
	}
	h.Version = binary.LittleEndian.Uint16(buf[4:6])
	if h.Version != CurrentVersion {
		return ErrUnsupportedVer
	}
	h.Flags = binary.LittleEndian.Uint16(buf[6:8])
	h.CreatedAt = int64(binary.LittleEndian.Uint64(buf[8:16]))
	h.SnapCount = binary.LittleEndian.Uint64(buf[16:24])
	copy(h.Reserved[:], buf[24:32])
	return nil
}

// BlockHeader precedes each snappy-compressed snapshot record.
type BlockHeader struct {
	CompressedSize   uint32
	UncompressedSize uint32
	Checksum         uint32
}

func (b *BlockHeader) Serialize() []byte {
	buf := make([]byte, BlockHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], b.CompressedSize)
	binary.LittleEndian.PutUint32(buf[4:8], b.UncompressedSize)
	binary.LittleEndian.PutUint32(buf[8:12], b.Checksum)
	return buf
}

func (b *BlockHeader) Deserialize(buf []byte) error {
	if len(buf) < BlockHeaderSize {
		return errors.New("eventlog: buffer too small for block header")
	}
	b.CompressedSize = binary.LittleEndian.Uint32(buf[0:4])
	b.UncompressedSize = binary.LittleEndian.Uint32(buf[4:8])
	b.Checksum = binary.LittleEndian.Uint32(buf[8:12])
	return nil
}

// TenantSnapshot is one tenant's throttle state at the moment a
// Snapshot was taken.
type TenantSnapshot struct {
	TenantID     uint64
	IOUtil       int64
	IODelayUS    uint32
	LogicalReads uint64
	LogicalWrites uint64
	PhysicalReads uint64
	PhysicalWrites uint64
}

// Snapshot is one point-in-time recording of every tenant's state,
// plus the system-wide averages that drove that round's adjustments.
type Snapshot struct {
	TakenAtUnixNano int64
	AvgReadLatUS    int64
	AvgWriteLatUS   int64
	ActiveTenants   int32
	Tenants         []TenantSnapshot
}

// Serialize encodes a Snapshot into an uncompressed byte slice, ready
// to be handed to snappy before being framed by a BlockHeader.
func (s *Snapshot) Serialize() []byte {
	size := 8 + 8 + 8 + 4 + 4 // taken_at + avgR + avgW + active + tenant count
	size += len(s.Tenants) * (8 + 8 + 4 + 8 + 8 + 8 + 8)

	buf := make([]byte, size)
	offset := 0

	binary.LittleEndian.PutUint64(buf[offset:], uint64(s.TakenAtUnixNano))
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:], uint64(s.AvgReadLatUS))
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:], uint64(s.AvgWriteLatUS))
	offset += 8
	binary.LittleEndian.PutUint32(buf[offset:], uint32(s.ActiveTenants))
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], uint32(len(s.Tenants)))
	offset += 4

	for _, t := range s.Tenants {
		binary.LittleEndian.PutUint64(buf[offset:], t.TenantID)
		offset += 8
		binary.LittleEndian.PutUint64(buf[offset:], uint64(t.IOUtil))
		offset += 8
		binary.LittleEndian.PutUint32(buf[offset:], t.IODelayUS)
		offset += 4
		binary.LittleEndian.PutUint64(buf[offset:], t.LogicalReads)
		offset += 8
		binary.LittleEndian.PutUint64(buf[offset:], t.LogicalWrites)
		offset += 8
		binary.LittleEndian.PutUint64(buf[offset:], t.PhysicalReads)
		offset += 8
		binary.LittleEndian.PutUint64(buf[offset:], t.PhysicalWrites)
		offset += 8
	}

	return buf
}

// Deserialize decodes a Snapshot from the uncompressed bytes produced
// by Serialize.
func (s *Snapshot) Deserialize(buf []byte) error {
	if len(buf) < 24 {
		return errors.New("eventlog: buffer too small for snapshot")
	}
	offset := 0
	s.TakenAtUnixNano = int64(binary.LittleEndian.Uint64(buf[offset:]))
	offset += 8
	s.AvgReadLatUS = int64(binary.LittleEndian.Uint64(buf[offset:]))
	offset += 8
	s.AvgWriteLatUS = int64(binary.LittleEndian.Uint64(buf[offset:]))
	offset += 8
	s.ActiveTenants = int32(binary.LittleEndian.Uint32(buf[offset:]))
	offset += 4
	count := int(binary.LittleEndian.Uint32(buf[offset:]))
	offset += 4

	s.Tenants = make([]TenantSnapshot, 0, count)
	for i := 0; i < count; i++ {
		if len(buf) < offset+52 {
			return errors.New("eventlog: truncated tenant snapshot")
		}
		var t TenantSnapshot
		t.TenantID = binary.LittleEndian.Uint64(buf[offset:])
		offset += 8
		t.IOUtil = int64(binary.LittleEndian.Uint64(buf[offset:]))
		offset += 8
		t.IODelayUS = binary.LittleEndian.Uint32(buf[offset:])
		offset += 4
		t.LogicalReads = binary.LittleEndian.Uint64(buf[offset:])
		offset += 8
		t.LogicalWrites = binary.LittleEndian.Uint64(buf[offset:])
		offset += 8
		t.PhysicalReads = binary.LittleEndian.Uint64(buf[offset:])
		offset += 8
		t.PhysicalWrites = binary.LittleEndian.Uint64(buf[offset:])
		offset += 8
		s.Tenants = append(s.Tenants, t)
	}

	return nil
}

func checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}
