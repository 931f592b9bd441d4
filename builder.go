package msgwriter

import (
	"errors"
	"io"
	"time"

	"github.com/yuphing-ong/outlook-msg-writer/codepage"
	"github.com/yuphing-ong/outlook-msg-writer/internal/cfb"
	"github.com/yuphing-ong/outlook-msg-writer/internal/clock"
	"github.com/yuphing-ong/outlook-msg-writer/internal/codec"
	"github.com/yuphing-ong/outlook-msg-writer/internal/convidx"
	"github.com/yuphing-ong/outlook-msg-writer/internal/options"
	"github.com/yuphing-ong/outlook-msg-writer/internal/propstream"
	"github.com/yuphing-ong/outlook-msg-writer/internal/storage"
)

// ConversationIndexMode selects how a reply's conversation-index child
// block is synthesized. See convidx.Mode.
type ConversationIndexMode int

const (
	// ConvIndexTrivialChild pads with random bytes instead of an encoded
	// time delta, matching observed reader-tolerant behavior. Default.
	ConvIndexTrivialChild ConversationIndexMode = iota
	// ConvIndexEncodedDelta encodes an MS-OXCMSG §2.2.1.3 time delta.
	ConvIndexEncodedDelta
)

func (m ConversationIndexMode) toInternal() convidx.Mode {
	if m == ConvIndexEncodedDelta {
		return convidx.EncodedDelta
	}
	return convidx.TrivialChild
}

// Option configures a Builder at construction time.
type Option = options.Option[*Builder]

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// Builder assembles a MessageDescription and serializes it. The zero
// value is not usable; construct one with NewBuilder.
type Builder struct {
	desc MessageDescription

	now clock.Source
	rnd io.Reader

	convParent []byte
	convMode   convidx.Mode

	creationTime     time.Time
	modificationTime time.Time
}

// NewBuilder constructs a Builder with Windows-1252 lossy STRING8
// encoding, real wall-clock time, and crypto-random conversation-index
// material, all overridable via opts.
func NewBuilder(opts ...Option) (*Builder, error) {
	b := &Builder{
		desc: MessageDescription{Codepage: codepage.Windows1252},
		now:  realClock{},
	}
	if err := options.Apply(b, opts...); err != nil {
		return nil, wrapError(KindInvalidInput, "applying builder options", err)
	}
	return b, nil
}

// WithCodepage selects the STRING8 codepage; default is Windows-1252.
func WithCodepage(cp codepage.Codepage) Option {
	return options.NoError[*Builder](func(b *Builder) { b.desc.Codepage = cp })
}

// WithStrictEncoding makes STRING8 encode failures return an
// EncodingError instead of lossily substituting '?'.
func WithStrictEncoding(strict bool) Option {
	return options.NoError[*Builder](func(b *Builder) { b.desc.StrictEncoding = strict })
}

// WithLegacyAddressEncoding encodes address-like fields (sender/
// recipient email and address type) as STRING8 instead of UNICODE.
func WithLegacyAddressEncoding(legacy bool) Option {
	return options.NoError[*Builder](func(b *Builder) { b.desc.LegacyAddressEncoding = legacy })
}

// WithNow injects the clock source serialization reads "now" from, for
// deterministic output across repeated serializations.
func WithNow(src clock.Source) Option {
	return options.NoError[*Builder](func(b *Builder) { b.now = src })
}

// WithRandomSource injects the byte source used for conversation-index
// GUIDs and child-block padding, for deterministic output.
func WithRandomSource(rnd io.Reader) Option {
	return options.NoError[*Builder](func(b *Builder) { b.rnd = rnd })
}

// WithConversationParent threads this message as a reply: its
// conversation index is parent extended by one child block per mode.
func WithConversationParent(parent []byte, mode ConversationIndexMode) Option {
	return options.New[*Builder](func(b *Builder) error {
		if len(parent) < 22 {
			return convidx.ErrInvalidParent
		}
		b.convParent = parent
		b.convMode = mode.toInternal()
		return nil
	})
}

// SetSubject sets the message subject; also used as the normalized
// subject since no conversation-prefix stripping is performed.
func (b *Builder) SetSubject(subject string) { b.desc.Subject = subject }

// SetSender sets the sender's email address and display name.
func (b *Builder) SetSender(address, displayName string) {
	b.desc.SenderAddress = address
	b.desc.SenderName = displayName
}

// SetSenderAddrType overrides the sender's address type; default "SMTP".
func (b *Builder) SetSenderAddrType(addrType string) { b.desc.SenderAddrType = addrType }

// SetBodyPlainText sets the plain-text body.
func (b *Builder) SetBodyPlainText(body string) {
	b.desc.BodyPlainText = body
	b.desc.HasPlainText = true
}

// SetBodyHTML sets the HTML body.
func (b *Builder) SetBodyHTML(body string) {
	b.desc.BodyHTML = body
	b.desc.HasHTML = true
}

// SetUnread marks the message unread (PR_MESSAGE_FLAGS clears MSGFLAG_READ).
func (b *Builder) SetUnread(unread bool) { b.desc.Unread = unread }

// SetUnsent marks the message as a draft (MSGFLAG_UNSENT).
func (b *Builder) SetUnsent(unsent bool) { b.desc.Unsent = unsent }

// SetCreationTime overrides PR_CREATION_TIME; default is the clock
// source's Now() at serialization time.
func (b *Builder) SetCreationTime(t time.Time) { b.creationTime = t }

// SetModificationTime overrides PR_LAST_MODIFICATION_TIME; default is
// the clock source's Now() at serialization time.
func (b *Builder) SetModificationTime(t time.Time) { b.modificationTime = t }

// SetConversationTopic sets PR_CONVERSATION_TOPIC without establishing a
// conversation index; use StartConversation to do both.
func (b *Builder) SetConversationTopic(topic string) { b.desc.ConversationTopic = topic }

// StartConversation sets the conversation topic and synthesizes a fresh
// 22-byte conversation-index root, returning it so a reply message can
// be threaded onto it via WithConversationParent.
func (b *Builder) StartConversation(topic string) []byte {
	b.desc.ConversationTopic = topic
	root := convidx.NewRoot(b.now.Now(), b.rnd)
	b.desc.ConversationIndex = root
	return root
}

// AddRecipient appends a recipient, assigning it the next insertion-order
// index.
func (b *Builder) AddRecipient(kind RecipientKind, address, displayName string) {
	b.desc.Recipients = append(b.desc.Recipients, Recipient{
		Address:     address,
		DisplayName: displayName,
		Kind:        kind,
		Index:       len(b.desc.Recipients),
	})
}

// AddRecipientWithAddrType is AddRecipient with an explicit address type
// (e.g. "EX" for a legacy Exchange DN) instead of the "SMTP" default.
func (b *Builder) AddRecipientWithAddrType(kind RecipientKind, address, displayName, addrType string) {
	b.desc.Recipients = append(b.desc.Recipients, Recipient{
		Address:     address,
		DisplayName: displayName,
		AddrType:    addrType,
		Kind:        kind,
		Index:       len(b.desc.Recipients),
	})
}

// AddAttachment appends a by-value attachment, assigning it the next
// insertion-order index.
func (b *Builder) AddAttachment(filename string, data []byte) {
	b.desc.Attachments = append(b.desc.Attachments, Attachment{
		Filename:     filename,
		Data:         data,
		AttachMethod: AttachByValue,
		Index:        len(b.desc.Attachments),
	})
}

// AddInlineAttachment appends an attachment rendered inline in an HTML
// body, referenced by contentID (e.g. via a "cid:" URL).
func (b *Builder) AddInlineAttachment(filename, contentID string, data []byte) {
	b.desc.Attachments = append(b.desc.Attachments, Attachment{
		Filename:     filename,
		Data:         data,
		ContentID:    contentID,
		Inline:       true,
		AttachMethod: AttachByValue,
		Index:        len(b.desc.Attachments),
	})
}

// AddProperty merges an additional tagged property into the message
// storage's property table. A tag colliding with a required property,
// or with another additional property, fails the subsequent Write with
// an InvalidInput error.
func (b *Builder) AddProperty(id uint16, value PropertyValue) {
	b.desc.AdditionalProperties = append(b.desc.AdditionalProperties, Property{ID: id, Value: value})
}

// Write serializes the accumulated MessageDescription as a .msg byte
// stream to w. The Builder is not mutated; the same Builder may be
// written multiple times, and produces byte-identical output each time
// given the same injected clock and random sources.
func (b *Builder) Write(w io.Writer) error {
	now := b.now.Now()

	creationTime := b.creationTime
	if creationTime.IsZero() {
		creationTime = now
	}
	modificationTime := b.modificationTime
	if modificationTime.IsZero() {
		modificationTime = now
	}

	convIndex := b.desc.ConversationIndex
	if b.convParent != nil {
		idx, err := convidx.AppendChild(b.convParent, now, b.convMode, b.rnd)
		if err != nil {
			return wrapError(KindInvalidInput, "conversation parent", err)
		}
		convIndex = idx
	}

	in := storage.MessageInput{
		Subject:               b.desc.Subject,
		SenderAddress:         b.desc.SenderAddress,
		SenderName:            b.desc.SenderName,
		SenderAddrType:        b.desc.SenderAddrType,
		HasBodyPlainText:      b.desc.HasPlainText,
		BodyPlainText:         b.desc.BodyPlainText,
		HasBodyHTML:           b.desc.HasHTML,
		BodyHTML:              b.desc.BodyHTML,
		Unread:                b.desc.Unread,
		Unsent:                b.desc.Unsent,
		ConversationTopic:     b.desc.ConversationTopic,
		ConversationIndex:     convIndex,
		Now:                   now,
		CreationTime:          creationTime,
		ModificationTime:      modificationTime,
		LegacyAddressEncoding: b.desc.LegacyAddressEncoding,
		CodecOptions: codec.Options{
			Codepage: b.desc.Codepage,
			Strict:   b.desc.StrictEncoding,
		},
	}

	for _, r := range b.desc.Recipients {
		in.Recipients = append(in.Recipients, storage.RecipientInput{
			Index:       r.Index,
			Kind:        int32(r.Kind),
			Address:     r.Address,
			DisplayName: r.DisplayName,
			AddrType:    r.AddrType,
		})
	}
	for _, a := range b.desc.Attachments {
		in.Attachments = append(in.Attachments, storage.AttachmentInput{
			Index:        a.Index,
			Filename:     a.Filename,
			Data:         a.Data,
			MimeType:     a.MimeType,
			ContentID:    a.ContentID,
			Inline:       a.Inline,
			AttachMethod: int32(a.AttachMethod),
		})
	}
	for _, p := range b.desc.AdditionalProperties {
		in.AdditionalProperties = append(in.AdditionalProperties, propstream.TaggedProperty{
			ID:    p.ID,
			Value: p.Value.toCodec(),
		})
	}

	root, err := storage.Compose(in)
	if err != nil {
		switch {
		case errors.Is(err, codec.ErrEncoding):
			return wrapError(KindEncodingError, "composing message storage tree", err)
		case errors.Is(err, codec.ErrUnsupportedType):
			return wrapError(KindUnsupportedType, "composing message storage tree", err)
		default:
			return wrapError(KindInvalidInput, "composing message storage tree", err)
		}
	}

	if err := cfb.Write(w, root); err != nil {
		if errors.Is(err, cfb.ErrCapacityExceeded) {
			return wrapError(KindCapacityExceeded, "writing CFB container", err)
		}
		return wrapError(KindSinkError, "writing CFB container", err)
	}

	return nil
}

func (v PropertyValue) toCodec() codec.Value {
	return codec.Value{
		Type:   v.typ,
		Int16:  v.int16,
		Int32:  v.int32,
		Int64:  v.int64,
		Bool:   v.bool_,
		Time:   v.time,
		Str:    v.str,
		Binary: v.binary,
	}
}
