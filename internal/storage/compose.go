package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/yuphing-ong/outlook-msg-writer/internal/codec"
	"github.com/yuphing-ong/outlook-msg-writer/internal/mapi"
	"github.com/yuphing-ong/outlook-msg-writer/internal/propstream"
)

// RecipientInput is the composer's view of one recipient; the façade's
// public Recipient type is converted into this before composition so the
// composer never depends on the public package (avoiding an import
// cycle).
type RecipientInput struct {
	Index       int
	Kind        int32 // mapi.RecipientTo / CC / BCC
	Address     string
	DisplayName string
	AddrType    string // default "SMTP"
}

// AttachmentInput is the composer's view of one attachment.
type AttachmentInput struct {
	Index        int
	Filename     string
	Data         []byte
	MimeType     string
	ContentID    string
	Inline       bool
	AttachMethod int32
}

// MessageInput is the composer's view of a MessageDescription.
type MessageInput struct {
	Subject           string
	SenderAddress     string
	SenderName        string
	SenderAddrType    string // default "SMTP"
	HasBodyPlainText  bool
	BodyPlainText     string
	HasBodyHTML       bool
	BodyHTML          string
	Unread            bool
	Unsent            bool
	ConversationTopic string
	ConversationIndex []byte // nil when threading is not set

	Now              time.Time
	CreationTime     time.Time
	ModificationTime time.Time

	Recipients  []RecipientInput
	Attachments []AttachmentInput

	// AdditionalProperties are caller-supplied tagged properties merged
	// into the message's own property table. A tag colliding with one
	// of the required properties above is an error (invariant: unique
	// tags per storage).
	AdditionalProperties []propstream.TaggedProperty

	LegacyAddressEncoding bool // STRING8 instead of UNICODE for address-like fields
	CodecOptions          codec.Options
}

// Compose builds the full logical directory tree for in: the message's
// own property storage, a recipient storage per entry in in.Recipients,
// an attachment storage per entry in in.Attachments, and the named-id
// placeholder storage.
func Compose(in MessageInput) (*Node, error) {
	root := &Node{Name: "Root Entry"}

	addrType := in.SenderAddrType
	if addrType == "" {
		addrType = "SMTP"
	}

	hasAttachments := len(in.Attachments) > 0

	msgProps := []propstream.TaggedProperty{
		{ID: mapi.PidTagMessageClass, Value: textValue(mapi.MessageClassNote, false)},
		{ID: mapi.PidTagSubject, Value: textValue(in.Subject, false)},
		{ID: mapi.PidTagNormalizedSubject, Value: textValue(in.Subject, false)},
		{ID: mapi.PidTagSubjectPrefix, Value: textValue("", false)},
		{ID: mapi.PidTagSenderAddrType, Value: textValue(addrType, in.LegacyAddressEncoding)},
		{ID: mapi.PidTagSenderEmailAddress, Value: textValue(in.SenderAddress, in.LegacyAddressEncoding)},
		{ID: mapi.PidTagSenderName, Value: textValue(in.SenderName, false)},
		{ID: mapi.PidTagSentRepresentingEmailAddress, Value: textValue(in.SenderAddress, in.LegacyAddressEncoding)},
		{ID: mapi.PidTagSentRepresentingName, Value: textValue(in.SenderName, false)},
		{ID: mapi.PidTagClientSubmitTime, Value: codec.TimeValue(in.Now)},
		{ID: mapi.PidTagMessageDeliveryTime, Value: codec.TimeValue(in.Now)},
		{ID: mapi.PidTagCreationTime, Value: codec.TimeValue(in.CreationTime)},
		{ID: mapi.PidTagLastModificationTime, Value: codec.TimeValue(in.ModificationTime)},
		{ID: mapi.PidTagMessageFlags, Value: codec.Int32Value(messageFlags(in.Unread, in.Unsent, hasAttachments))},
		{ID: mapi.PidTagStoreSupportMask, Value: codec.Int32Value(mapi.StoreSupportMaskUnicode)},
	}

	if in.HasBodyPlainText {
		msgProps = append(msgProps, propstream.TaggedProperty{ID: mapi.PidTagBody, Value: codec.StringValue16(in.BodyPlainText)})
	}
	if in.HasBodyHTML {
		msgProps = append(msgProps, propstream.TaggedProperty{ID: mapi.PidTagHTML, Value: codec.BinaryValue([]byte(in.BodyHTML))})
	}
	msgProps = append(msgProps, propstream.TaggedProperty{ID: mapi.PidTagNativeBody, Value: codec.Int32Value(nativeBodyCode(in.HasBodyPlainText, in.HasBodyHTML))})

	if in.ConversationTopic != "" || len(in.ConversationIndex) > 0 {
		msgProps = append(msgProps, propstream.TaggedProperty{ID: mapi.PidTagConversationTopic, Value: textValue(in.ConversationTopic, false)})
	}
	if len(in.ConversationIndex) > 0 {
		msgProps = append(msgProps, propstream.TaggedProperty{ID: mapi.PidTagConversationIndex, Value: codec.BinaryValue(in.ConversationIndex)})
	}

	for _, extra := range in.AdditionalProperties {
		for _, existing := range msgProps {
			if existing.ID == extra.ID && existing.Value.Type == extra.Value.Type {
				return nil, fmt.Errorf("storage: additional property 0x%04X/0x%04X collides with a required property", extra.ID, extra.Value.Type)
			}
		}
		msgProps = append(msgProps, extra)
	}

	counts := propstream.Counts{
		RecipientCount:  uint32(len(in.Recipients)),
		AttachmentCount: uint32(len(in.Attachments)),
	}

	table, streams, err := propstream.Build(propstream.TopLevel, msgProps, counts, in.CodecOptions)
	if err != nil {
		return nil, fmt.Errorf("storage: building message property table: %w", err)
	}
	root.AddStream(mapi.PropertiesStreamName, table)
	root.addStreamsSorted(streams)

	nameid := root.AddStorage(mapi.NameidStorageName)
	for _, tag := range []uint32{
		mapi.Tag(0x0002, mapi.TypeBinary),
		mapi.Tag(0x0003, mapi.TypeBinary),
		mapi.Tag(0x0004, mapi.TypeBinary),
	} {
		nameid.AddStream(propstream.StreamName(tag), nil)
	}

	for _, r := range in.Recipients {
		if r.Kind != mapi.RecipientTo && r.Kind != mapi.RecipientCC && r.Kind != mapi.RecipientBCC {
			return nil, fmt.Errorf("storage: recipient %d: invalid kind %d", r.Index, r.Kind)
		}
		rAddrType := r.AddrType
		if rAddrType == "" {
			rAddrType = "SMTP"
		}
		searchKey := append([]byte(strings.ToUpper(fmt.Sprintf("%s:%s", rAddrType, r.Address))), 0x00)

		rProps := []propstream.TaggedProperty{
			{ID: mapi.PidTagObjectType, Value: codec.Int32Value(mapi.ObjectTypeRecipient)},
			{ID: mapi.PidTagDisplayType, Value: codec.Int32Value(0)},
			{ID: mapi.PidTagRecipientType, Value: codec.Int32Value(r.Kind)},
			{ID: mapi.PidTagRowid, Value: codec.Int32Value(int32(r.Index))},
			{ID: mapi.PidTagEmailAddress, Value: textValue(r.Address, in.LegacyAddressEncoding)},
			{ID: mapi.PidTagAddrType, Value: textValue(rAddrType, in.LegacyAddressEncoding)},
			{ID: mapi.PidTagDisplayName, Value: textValue(r.DisplayName, false)},
			{ID: mapi.PidTagSearchKey, Value: codec.BinaryValue(searchKey)},
		}

		rTable, rStreams, rErr := propstream.Build(propstream.RecipAttach, rProps, propstream.Counts{}, in.CodecOptions)
		if rErr != nil {
			return nil, fmt.Errorf("storage: building recipient %d property table: %w", r.Index, rErr)
		}

		recipNode := root.AddStorage(fmt.Sprintf("%s%08X", mapi.RecipStoragePrefix, r.Index))
		recipNode.AddStream(mapi.PropertiesStreamName, rTable)
		recipNode.addStreamsSorted(rStreams)
	}

	for _, a := range in.Attachments {
		method := a.AttachMethod
		if method == 0 {
			method = mapi.AttachByValue
		}

		aProps := []propstream.TaggedProperty{
			{ID: mapi.PidTagObjectType, Value: codec.Int32Value(mapi.ObjectTypeAttachment)},
			{ID: mapi.PidTagAttachMethod, Value: codec.Int32Value(method)},
			{ID: mapi.PidTagAttachFilename, Value: codec.StringValue16(a.Filename)},
			{ID: mapi.PidTagAttachLongFilename, Value: codec.StringValue16(a.Filename)},
			{ID: mapi.PidTagAttachData, Value: codec.BinaryValue(a.Data)},
			{ID: mapi.PidTagAttachSize, Value: codec.Int32Value(int32(len(a.Data)))},
		}
		if a.MimeType != "" {
			aProps = append(aProps, propstream.TaggedProperty{ID: mapi.PidTagAttachMimeTag, Value: codec.StringValue16(a.MimeType)})
		}
		if a.ContentID != "" {
			aProps = append(aProps, propstream.TaggedProperty{ID: mapi.PidTagAttachContentID, Value: codec.StringValue16(a.ContentID)})
		}
		if a.Inline {
			aProps = append(aProps,
				propstream.TaggedProperty{ID: mapi.PidTagAttachFlags, Value: codec.Int32Value(mapi.AttachFlagRenderedInBody)},
				propstream.TaggedProperty{ID: mapi.PidTagHidden, Value: codec.BoolValue(true)},
			)
		}

		aTable, aStreams, aErr := propstream.Build(propstream.RecipAttach, aProps, propstream.Counts{}, in.CodecOptions)
		if aErr != nil {
			return nil, fmt.Errorf("storage: building attachment %d property table: %w", a.Index, aErr)
		}

		attachNode := root.AddStorage(fmt.Sprintf("%s%08X", mapi.AttachStoragePrefix, a.Index))
		attachNode.AddStream(mapi.PropertiesStreamName, aTable)
		attachNode.addStreamsSorted(aStreams)
	}

	return root, nil
}

func textValue(s string, legacy bool) codec.Value {
	if legacy {
		return codec.StringValue8(s)
	}
	return codec.StringValue16(s)
}

func messageFlags(unread, unsent, hasAttachments bool) int32 {
	var flags int32
	if !unread {
		flags |= mapi.MessageFlagRead
	}
	if unsent {
		flags |= mapi.MessageFlagUnsent
	}
	if hasAttachments {
		flags |= mapi.MessageFlagHasAttach
	}
	return flags
}

func nativeBodyCode(hasPlain, hasHTML bool) int32 {
	switch {
	case hasHTML:
		return mapi.NativeBodyHTML
	case hasPlain:
		return mapi.NativeBodyPlainText
	default:
		return mapi.NativeBodyUndefined
	}
}
