package propstream

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yuphing-ong/outlook-msg-writer/internal/codec"
	"github.com/yuphing-ong/outlook-msg-writer/internal/mapi"
)

func TestBuildTopLevelHeaderCounts(t *testing.T) {
	table, streams, err := Build(TopLevel, nil, Counts{RecipientCount: 2, AttachmentCount: 1}, codec.Options{})
	require.NoError(t, err)
	require.Len(t, table, mapi.TopLevelHeaderSize)
	require.Empty(t, streams)

	require.Equal(t, uint32(2), binary.LittleEndian.Uint32(table[8:12]))
	require.Equal(t, uint32(1), binary.LittleEndian.Uint32(table[12:16]))
	require.Equal(t, uint32(2), binary.LittleEndian.Uint32(table[16:20]))
	require.Equal(t, uint32(1), binary.LittleEndian.Uint32(table[20:24]))
}

func TestBuildRecipAttachHeaderIsEightZeroBytes(t *testing.T) {
	table, _, err := Build(RecipAttach, nil, Counts{}, codec.Options{})
	require.NoError(t, err)
	require.Equal(t, make([]byte, mapi.RecipAttachHeaderSize), table)
}

func TestBuildOrdersEntriesByAscendingTag(t *testing.T) {
	props := []TaggedProperty{
		{ID: mapi.PidTagLastModificationTime, Value: codec.Int32Value(1)},
		{ID: mapi.PidTagSubject, Value: codec.StringValue16("z")},
		{ID: mapi.PidTagCreationTime, Value: codec.Int32Value(2)},
	}
	table, _, err := Build(RecipAttach, props, Counts{}, codec.Options{})
	require.NoError(t, err)

	body := table[mapi.RecipAttachHeaderSize:]
	require.Len(t, body, 3*16)

	var tags []uint32
	for i := 0; i < 3; i++ {
		tags = append(tags, binary.LittleEndian.Uint32(body[i*16:i*16+4]))
	}
	require.True(t, tags[0] < tags[1] && tags[1] < tags[2])
}

func TestBuildFixedLengthEntryInlinesValue(t *testing.T) {
	props := []TaggedProperty{{ID: mapi.PidTagAttachSize, Value: codec.Int32Value(42)}}
	table, streams, err := Build(RecipAttach, props, Counts{}, codec.Options{})
	require.NoError(t, err)
	require.Empty(t, streams)

	entry := table[mapi.RecipAttachHeaderSize:]
	require.Equal(t, int32(42), int32(binary.LittleEndian.Uint32(entry[8:12])))
}

func TestBuildVariableLengthEntryDeclaresSizeAndEmitsStream(t *testing.T) {
	props := []TaggedProperty{{ID: mapi.PidTagSubject, Value: codec.StringValue16("Hi")}}
	table, streams, err := Build(RecipAttach, props, Counts{}, codec.Options{})
	require.NoError(t, err)

	entry := table[mapi.RecipAttachHeaderSize:]
	tag := binary.LittleEndian.Uint32(entry[0:4])
	declaredSize := binary.LittleEndian.Uint32(entry[8:12])

	name := StreamName(tag)
	body, ok := streams[name]
	require.True(t, ok)
	require.EqualValues(t, declaredSize, len(body))
}

func TestBuildRejectsDuplicateTags(t *testing.T) {
	props := []TaggedProperty{
		{ID: mapi.PidTagSubject, Value: codec.StringValue16("a")},
		{ID: mapi.PidTagSubject, Value: codec.StringValue16("b")},
	}
	_, _, err := Build(RecipAttach, props, Counts{}, codec.Options{})
	require.Error(t, err)
}

func TestStreamNameFormat(t *testing.T) {
	tag := mapi.Tag(mapi.PidTagSubject, mapi.TypeUnicode)
	require.Equal(t, "__substg1.0_0037001F", StreamName(tag))
}
