package convidx

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fixedBytes is a deterministic Randomness source for tests.
type fixedBytes byte

func (f fixedBytes) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(f)
	}
	return len(p), nil
}

func TestNewRootShape(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	root := NewRoot(now, fixedBytes(0xAB))
	require.Len(t, root, 22)
	require.Equal(t, byte(0x01), root[0])
	require.True(t, bytes.Equal(root[6:22], bytes.Repeat([]byte{0xAB}, 16)))
}

func TestNewRootDeterministicGivenSameInputs(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a := NewRoot(now, fixedBytes(0x11))
	b := NewRoot(now, fixedBytes(0x11))
	require.Equal(t, a, b)
}

func TestAppendChildRejectsShortParent(t *testing.T) {
	_, err := AppendChild([]byte{1, 2, 3}, time.Now(), TrivialChild, fixedBytes(0))
	require.ErrorIs(t, err, ErrInvalidParent)
}

func TestAppendChildGrowsByFiveBytes(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	root := NewRoot(now, fixedBytes(0x01))

	child, err := AppendChild(root, now.Add(time.Hour), TrivialChild, fixedBytes(0x02))
	require.NoError(t, err)
	require.Len(t, child, 27)
	require.Equal(t, root, child[:22])
}

func TestAppendChildEncodedDeltaIsMonotonicWithTime(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	root := NewRoot(now, fixedBytes(0x01))

	earlier, err := AppendChild(root, now.Add(time.Minute), EncodedDelta, nil)
	require.NoError(t, err)
	later, err := AppendChild(root, now.Add(time.Hour), EncodedDelta, nil)
	require.NoError(t, err)

	require.True(t, later[len(later)-5] >= earlier[len(earlier)-5])
	require.Equal(t, byte(0x80), later[len(later)-5]&0x80)
}

func TestAppendChildEncodedDeltaNeverNegative(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	root := NewRoot(now, fixedBytes(0x01))

	child, err := AppendChild(root, now.Add(-time.Hour), EncodedDelta, nil)
	require.NoError(t, err)
	require.Equal(t, byte(0x80), child[len(child)-5]&0x80)
}
