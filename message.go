package msgwriter

import (
	"time"

	"github.com/yuphing-ong/outlook-msg-writer/codepage"
	"github.com/yuphing-ong/outlook-msg-writer/internal/mapi"
)

// RecipientKind classifies a Recipient's role on the message, matching
// PR_RECIPIENT_TYPE's TO/CC/BCC values.
type RecipientKind int32

const (
	RecipientTo  RecipientKind = 1
	RecipientCC  RecipientKind = 2
	RecipientBCC RecipientKind = 3
)

// AttachMethod classifies how an Attachment's payload is stored,
// matching PR_ATTACH_METHOD.
type AttachMethod int32

// AttachByValue is the only attach method this writer produces: the
// payload lives inline in the attachment's own PR_ATTACH_DATA_BIN
// stream.
const AttachByValue AttachMethod = 1

// Recipient is one entry in a MessageDescription's recipient list. Index
// is assigned by the Builder in insertion order and need not be set by
// callers.
type Recipient struct {
	Address     string
	DisplayName string
	AddrType    string // default "SMTP" when empty
	Kind        RecipientKind
	Index       int
}

// Attachment is one entry in a MessageDescription's attachment list.
// Index is assigned by the Builder in insertion order and need not be
// set by callers.
type Attachment struct {
	Filename     string
	Data         []byte
	MimeType     string
	ContentID    string
	Inline       bool
	AttachMethod AttachMethod
	Index        int
}

// Property is a caller-supplied tagged MAPI property merged into the
// message storage's property table. ID is the 16-bit property id.
// Build Value with one of the package-level *Property constructors
// below.
type Property struct {
	ID    uint16
	Value PropertyValue
}

// PropertyValue is a typed MAPI property value a caller can attach via
// AdditionalProperties. Construct one with the package-level
// StringProperty/BinaryProperty/Int32Property/... helpers.
type PropertyValue struct {
	typ    uint16
	int16  int16
	int32  int32
	int64  int64
	bool_  bool
	time   time.Time
	str    string
	binary []byte
}

// StringProperty constructs a UNICODE PropertyValue.
func StringProperty(s string) PropertyValue {
	return PropertyValue{typ: mapi.TypeUnicode, str: s}
}

// BinaryProperty constructs a BINARY PropertyValue.
func BinaryProperty(b []byte) PropertyValue {
	return PropertyValue{typ: mapi.TypeBinary, binary: b}
}

// Int32Property constructs an INTEGER32 PropertyValue.
func Int32Property(n int32) PropertyValue {
	return PropertyValue{typ: mapi.TypeInteger32, int32: n}
}

// Int16Property constructs an INTEGER16 PropertyValue.
func Int16Property(n int16) PropertyValue {
	return PropertyValue{typ: mapi.TypeInteger16, int16: n}
}

// Int64Property constructs an INTEGER64 PropertyValue.
func Int64Property(n int64) PropertyValue {
	return PropertyValue{typ: mapi.TypeInteger64, int64: n}
}

// BoolProperty constructs a BOOLEAN PropertyValue.
func BoolProperty(b bool) PropertyValue {
	return PropertyValue{typ: mapi.TypeBoolean, bool_: b}
}

// TimeProperty constructs a SYSTIME PropertyValue.
func TimeProperty(t time.Time) PropertyValue {
	return PropertyValue{typ: mapi.TypeSysTime, time: t}
}

// MessageDescription is the root aggregate a Builder assembles and the
// Builder serializes. Populate it through Builder's Set*/Add* methods
// rather than constructing one directly; Builder owns index assignment
// and default resolution (e.g. "SMTP" address types, BY_VALUE attach
// method).
type MessageDescription struct {
	Subject string

	SenderAddress  string
	SenderName     string
	SenderAddrType string // default "SMTP" when empty

	BodyPlainText string
	HasPlainText  bool
	BodyHTML      string
	HasHTML       bool

	Recipients  []Recipient
	Attachments []Attachment

	Unread bool
	Unsent bool

	ConversationTopic string
	ConversationIndex []byte // set via Builder.StartConversation; a WithConversationParent reply index is computed at Write time and not stored here

	Codepage              codepage.Codepage
	StrictEncoding        bool
	LegacyAddressEncoding bool

	AdditionalProperties []Property
}
