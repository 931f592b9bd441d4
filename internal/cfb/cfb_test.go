package cfb

import (
	"bytes"
	"testing"

	"github.com/richardlehane/mscfb"
	"github.com/stretchr/testify/require"

	"github.com/yuphing-ong/outlook-msg-writer/internal/storage"
)

// readBack decodes buf with an independent CFB reader (mscfb), returning
// stream name -> contents for every stream in the container. This
// exercises the writer against a reader implementation this package
// never calls into during Write, catching layout bugs a self-consistent
// check would miss.
func readBack(t *testing.T, buf []byte) map[string][]byte {
	t.Helper()
	doc, err := mscfb.New(bytes.NewReader(buf))
	require.NoError(t, err)

	out := make(map[string][]byte)
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry.Size == 0 {
			continue
		}
		data := make([]byte, entry.Size)
		_, rerr := entry.Read(data)
		require.NoError(t, rerr)
		out[entry.Name] = data
	}
	return out
}

func TestWriteHeaderMagicAndSectorAlignment(t *testing.T) {
	root := &storage.Node{Name: "Root Entry"}
	root.AddStream("__properties_version1.0", make([]byte, 32))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, root))

	data := buf.Bytes()
	require.Equal(t, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, data[:8])
	require.Zero(t, len(data)%sectorSize)
}

func TestWriteRoundTripsSmallAndLargeStreams(t *testing.T) {
	root := &storage.Node{Name: "Root Entry"}
	small := []byte("a small stream body")
	large := bytes.Repeat([]byte{0x5A}, miniStreamCutoff+1024)

	root.AddStream("__substg1.0_00370001F", small)
	root.AddStream("__substg1.0_10000001F", large)

	storageNode := root.AddStorage("__attach_version1.0_#00000000")
	storageNode.AddStream("__substg1.0_37010102", []byte("attachment payload"))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, root))

	got := readBack(t, buf.Bytes())
	require.Equal(t, small, got["__substg1.0_00370001F"])
	require.Equal(t, large, got["__substg1.0_10000001F"])
	require.Equal(t, []byte("attachment payload"), got["__substg1.0_37010102"])
}

func TestWriteHandlesZeroLengthStream(t *testing.T) {
	root := &storage.Node{Name: "Root Entry"}
	root.AddStream("__substg1.0_0E1D001F", nil)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, root))
	require.NotZero(t, buf.Len())
}

func TestWriteDeterministicGivenSameTree(t *testing.T) {
	build := func() []byte {
		root := &storage.Node{Name: "Root Entry"}
		root.AddStream("__substg1.0_0037001F", []byte("subject"))
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, root))
		return buf.Bytes()
	}
	require.Equal(t, build(), build())
}

func TestWriteManySmallStreamsExercisesMiniFAT(t *testing.T) {
	root := &storage.Node{Name: "Root Entry"}
	for i := 0; i < 50; i++ {
		recip := root.AddStorage("__recip_version1.0_#" + zeroPad(i))
		recip.AddStream("__substg1.0_3001001F", bytes.Repeat([]byte{byte(i)}, 10))
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, root))
	require.Zero(t, buf.Len()%sectorSize)

	// Every recipient storage holds a stream of the same name, so count
	// the streams directly rather than through readBack's name-keyed map.
	doc, err := mscfb.New(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	var bodies [][]byte
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry.Size == 0 {
			continue
		}
		data := make([]byte, entry.Size)
		_, rerr := entry.Read(data)
		require.NoError(t, rerr)
		bodies = append(bodies, data)
	}
	require.Len(t, bodies, 50)
}

func zeroPad(i int) string {
	const hex = "0123456789ABCDEF"
	out := make([]byte, 8)
	for pos := 7; pos >= 0; pos-- {
		out[pos] = hex[i&0xF]
		i >>= 4
	}
	return string(out)
}
