// Package mapi holds the MAPI property type and tag constants used to lay
// out a .msg file per MS-OXMSG. Names mirror the PR_* / PT_* conventions
// used throughout the Outlook/Exchange property tables.
package mapi

// Property types (PT_*). Wire forms are documented on the codec that
// consumes them.
const (
	TypeInteger16 uint16 = 0x0002 // PT_I2
	TypeInteger32 uint16 = 0x0003 // PT_LONG
	TypeBoolean   uint16 = 0x000B // PT_BOOLEAN
	TypeInteger64 uint16 = 0x0014 // PT_I8
	TypeSysTime   uint16 = 0x0040 // PT_SYSTIME
	TypeString8   uint16 = 0x001E // PT_STRING8
	TypeUnicode   uint16 = 0x001F // PT_UNICODE
	TypeBinary    uint16 = 0x0102 // PT_BINARY
)

// IsFixedLength reports whether values of typ are stored inline in the
// 8-byte value slot of a property-table entry rather than in a dedicated
// __substg1.0_ stream.
func IsFixedLength(typ uint16) bool {
	switch typ {
	case TypeInteger16, TypeInteger32, TypeBoolean, TypeInteger64, TypeSysTime:
		return true
	default:
		return false
	}
}

// Tag packs a property id and type into the 32-bit MAPI property tag used
// as both the property-table key and the __substg1.0_ stream suffix.
func Tag(id uint16, typ uint16) uint32 {
	return uint32(id)<<16 | uint32(typ)
}

// Message-level property ids (PR_*).
const (
	PidTagSubject                      uint16 = 0x0037
	PidTagNormalizedSubject            uint16 = 0x0E1D
	PidTagSubjectPrefix                uint16 = 0x003D
	PidTagSenderAddrType               uint16 = 0x0C1E
	PidTagSenderEmailAddress           uint16 = 0x0C1F
	PidTagSenderName                   uint16 = 0x0C1A
	PidTagSentRepresentingName         uint16 = 0x0042
	PidTagSentRepresentingEmailAddress uint16 = 0x0065
	PidTagMessageClass                 uint16 = 0x001A
	PidTagBody                         uint16 = 0x1000
	PidTagHTML                         uint16 = 0x1013
	PidTagNativeBody                   uint16 = 0x1016
	PidTagMessageFlags                 uint16 = 0x0E07
	PidTagClientSubmitTime             uint16 = 0x0039
	PidTagMessageDeliveryTime          uint16 = 0x0E06
	PidTagCreationTime                 uint16 = 0x3007
	PidTagLastModificationTime         uint16 = 0x3008
	PidTagConversationTopic            uint16 = 0x0070
	PidTagConversationIndex            uint16 = 0x0071
	PidTagStoreSupportMask             uint16 = 0x340D

	// Recipient-level property ids.
	PidTagObjectType    uint16 = 0x0FFE
	PidTagDisplayType   uint16 = 0x3900
	PidTagRecipientType uint16 = 0x0C15
	PidTagRowid         uint16 = 0x3000
	PidTagEmailAddress  uint16 = 0x3003
	PidTagAddrType      uint16 = 0x3002
	PidTagDisplayName   uint16 = 0x3001
	PidTagSearchKey     uint16 = 0x300B

	// Attachment-level property ids.
	PidTagAttachMethod       uint16 = 0x3705
	PidTagAttachFilename     uint16 = 0x3704
	PidTagAttachLongFilename uint16 = 0x3707
	PidTagAttachData         uint16 = 0x3701
	PidTagAttachSize         uint16 = 0x0E20
	PidTagAttachMimeTag      uint16 = 0x370E
	PidTagAttachContentID    uint16 = 0x3712
	PidTagAttachFlags        uint16 = 0x3714
	PidTagHidden             uint16 = 0x7FFE
)

// Native-body codes for PR_NATIVE_BODY_INFO (0x1016).
const (
	NativeBodyUndefined int32 = 0
	NativeBodyPlainText int32 = 1
	NativeBodyRTF       int32 = 2
	NativeBodyHTML      int32 = 3
)

// PR_MESSAGE_FLAGS bits (subset relevant to the writer).
const (
	MessageFlagRead      int32 = 0x00000001
	MessageFlagUnsent    int32 = 0x00000008
	MessageFlagHasAttach int32 = 0x00000010
)

// Store support mask for PR_STORE_SUPPORT_MASK; STORE_UNICODE_OK.
const StoreSupportMaskUnicode int32 = 0x00040000

// Object types for PR_OBJECT_TYPE (0x0FFE).
const (
	ObjectTypeMessage    int32 = 5
	ObjectTypeRecipient  int32 = 6
	ObjectTypeAttachment int32 = 7
)

// Recipient kinds for PR_RECIPIENT_TYPE.
const (
	RecipientTo  int32 = 1
	RecipientCC  int32 = 2
	RecipientBCC int32 = 3
)

// Attachment methods for PR_ATTACH_METHOD.
const (
	AttachByValue int32 = 1
)

// ATTACH_FLAGS bit for inline (rendered-in-body) attachments.
const AttachFlagRenderedInBody int32 = 0x4

// Stream / storage name conventions (MS-OXMSG).
const (
	PropertiesStreamName = "__properties_version1.0"
	SubstgPrefix          = "__substg1.0_"
	RecipStoragePrefix    = "__recip_version1.0_#"
	AttachStoragePrefix   = "__attach_version1.0_#"
	NameidStorageName     = "__nameid_version1.0"
)

// Header sizes for __properties_version1.0, by storage kind.
const (
	TopLevelHeaderSize    = 32
	EmbeddedHeaderSize    = 24
	RecipAttachHeaderSize = 8
)

// PropertyFlags written into each property-table entry: PROPATTR_READABLE | PROPATTR_WRITABLE.
const PropertyFlagsReadWrite uint32 = 0x00000006

// MessageClassNote is the default PR_MESSAGE_CLASS for a plain email.
const MessageClassNote = "IPM.Note"
