package eventlog

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_CreateNew(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "test.iotl")

	w, err := NewWriter(filePath)
	require.NoError(t, err)
	defer w.Close()

	_, err = os.Stat(filePath)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), w.snapCount)
}

func TestWriter_WriteAndReadBack(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "test.iotl")

	w, err := NewWriter(filePath)
	require.NoError(t, err)

	snaps := []*Snapshot{
		SnapshotOf(1_000_000, 499, 10, 2, []TenantSnapshot{
			{TenantID: 1, IOUtil: 49900000, IODelayUS: 5, LogicalReads: 100},
			{TenantID: 2, IOUtil: 499000, IODelayUS: 0, LogicalReads: 1},
		}),
		SnapshotOf(3_000_000, 499, 10, 2, []TenantSnapshot{
			{TenantID: 1, IOUtil: 49900000, IODelayUS: 10, LogicalReads: 200},
		}),
	}

	for _, s := range snaps {
		require.NoError(t, w.Write(s))
	}
	require.NoError(t, w.Close())

	r, err := NewReader(filePath)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, uint64(2), r.SnapCount())

	got, err := r.All()
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, snaps[0].TakenAtUnixNano, got[0].TakenAtUnixNano)
	assert.Equal(t, snaps[0].Tenants[0].TenantID, got[0].Tenants[0].TenantID)
	assert.Equal(t, snaps[0].Tenants[1].IODelayUS, got[0].Tenants[1].IODelayUS)
	assert.Equal(t, snaps[1].Tenants[0].LogicalReads, got[1].Tenants[0].LogicalReads)
}

func TestWriter_AppendsToExistingFile(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "test.iotl")

	w1, err := NewWriter(filePath)
	require.NoError(t, err)
	require.NoError(t, w1.Write(SnapshotOf(1, 0, 0, 1, []TenantSnapshot{{TenantID: 1}})))
	require.NoError(t, w1.Close())

	w2, err := NewWriter(filePath)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), w2.snapCount, "reopening must pick up the prior snapshot count")
	require.NoError(t, w2.Write(SnapshotOf(2, 0, 0, 1, []TenantSnapshot{{TenantID: 1}})))
	require.NoError(t, w2.Close())

	r, err := NewReader(filePath)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, uint64(2), r.SnapCount())

	got, err := r.All()
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestReader_NextReturnsEOFAtEnd(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "test.iotl")

	w, err := NewWriter(filePath)
	require.NoError(t, err)
	require.NoError(t, w.Write(SnapshotOf(1, 0, 0, 1, []TenantSnapshot{{TenantID: 9}})))
	require.NoError(t, w.Close())

	r, err := NewReader(filePath)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Next()
	require.NoError(t, err)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_RejectsBadMagic(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "bad.iotl")
	require.NoError(t, os.WriteFile(filePath, make([]byte, FileHeaderSize), 0644))

	_, err := NewReader(filePath)
	assert.ErrorIs(t, err, ErrInvalidMagic)
}
