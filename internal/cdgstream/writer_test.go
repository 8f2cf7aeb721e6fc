package cdgstream

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdgforge/internal/cdgpacket"
)

// Scenario 1 (spec.md §8.1): the flattened stream is exactly
// len(packets)*16 bytes, with no header or footer.
func TestBytesHasExactSizeNoHeader(t *testing.T) {
	p1, err := cdgpacket.NewBorderPreset(1)
	require.NoError(t, err)
	p2, err := cdgpacket.NewMemoryPreset(2, 0)
	require.NoError(t, err)
	packets := []cdgpacket.Packet{p1, p2, {}}

	out := Bytes(packets)
	assert.Len(t, out, 3*cdgpacket.Size)

	b1 := p1.Bytes()
	assert.Equal(t, b1[:], out[:cdgpacket.Size])
}

func TestBytesOfEmptySliceIsEmpty(t *testing.T) {
	assert.Empty(t, Bytes(nil))
}

func TestWriteToReturnsByteCount(t *testing.T) {
	p, err := cdgpacket.NewBorderPreset(1)
	require.NoError(t, err)
	var buf bytes.Buffer
	n, err := WriteTo(&buf, []cdgpacket.Packet{p}, nil)
	require.NoError(t, err)
	assert.Equal(t, cdgpacket.Size, n)
	assert.Equal(t, cdgpacket.Size, buf.Len())
}

func TestWriteFileWritesExactBytes(t *testing.T) {
	p, err := cdgpacket.NewBorderPreset(4)
	require.NoError(t, err)
	packets := []cdgpacket.Packet{p, p}

	dir := t.TempDir()
	path := filepath.Join(dir, "out.cdg")
	require.NoError(t, WriteFile(path, packets, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Bytes(packets), data)
}
