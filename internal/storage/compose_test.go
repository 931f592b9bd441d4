package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yuphing-ong/outlook-msg-writer/internal/codec"
	"github.com/yuphing-ong/outlook-msg-writer/internal/mapi"
	"github.com/yuphing-ong/outlook-msg-writer/internal/propstream"
)

func findChild(n *Node, name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func baseInput() MessageInput {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return MessageInput{
		Subject:          "Hello",
		SenderAddress:    "alice@example.com",
		SenderName:       "Alice",
		HasBodyPlainText: true,
		BodyPlainText:    "Body text",
		Now:              now,
		CreationTime:     now,
		ModificationTime: now,
	}
}

func TestComposeProducesPropertiesStreamAndNameidStorage(t *testing.T) {
	root, err := Compose(baseInput())
	require.NoError(t, err)

	props := findChild(root, mapi.PropertiesStreamName)
	require.NotNil(t, props)
	require.True(t, props.IsStream)

	nameid := findChild(root, mapi.NameidStorageName)
	require.NotNil(t, nameid)
	require.False(t, nameid.IsStream)
	require.Len(t, nameid.Children, 3)
}

func TestComposeRecipientsGetIndexedStorages(t *testing.T) {
	in := baseInput()
	in.Recipients = []RecipientInput{
		{Index: 0, Kind: mapi.RecipientTo, Address: "bob@example.com", DisplayName: "Bob"},
		{Index: 1, Kind: mapi.RecipientCC, Address: "carol@example.com", DisplayName: "Carol"},
	}
	root, err := Compose(in)
	require.NoError(t, err)

	require.NotNil(t, findChild(root, "__recip_version1.0_#00000000"))
	require.NotNil(t, findChild(root, "__recip_version1.0_#00000001"))
}

func TestComposeRejectsInvalidRecipientKind(t *testing.T) {
	in := baseInput()
	in.Recipients = []RecipientInput{{Index: 0, Kind: 99, Address: "x@example.com"}}
	_, err := Compose(in)
	require.Error(t, err)
}

func TestComposeAttachmentsGetIndexedStorages(t *testing.T) {
	in := baseInput()
	in.Attachments = []AttachmentInput{
		{Index: 0, Filename: "a.txt", Data: []byte("hi")},
	}
	root, err := Compose(in)
	require.NoError(t, err)

	attach := findChild(root, "__attach_version1.0_#00000000")
	require.NotNil(t, attach)

	props := findChild(attach, mapi.PropertiesStreamName)
	require.NotNil(t, props)
}

func TestComposeRejectsAdditionalPropertyCollidingWithRequired(t *testing.T) {
	in := baseInput()
	in.AdditionalProperties = []propstream.TaggedProperty{
		{ID: mapi.PidTagSubject, Value: codec.StringValue16("duplicate")},
	}
	_, err := Compose(in)
	require.Error(t, err)
}
