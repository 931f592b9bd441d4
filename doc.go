// Package msgwriter synthesizes Outlook .msg files (MS-CFB containers
// holding MS-OXMSG property storages) from scratch, without ever reading
// or depending on an existing .msg file.
//
// Build a message with NewBuilder, configure it with the Set* methods or
// functional Options, and call Write to serialize it to any io.Writer:
//
//	b, err := msgwriter.NewBuilder()
//	if err != nil {
//		...
//	}
//	b.SetSubject("Quarterly update")
//	b.SetSender("alice@example.com", "Alice Example")
//	b.SetBodyPlainText("See attached.")
//	b.AddRecipient(msgwriter.RecipientTo, "bob@example.com", "Bob Example")
//	if err := b.Write(f); err != nil {
//		...
//	}
package msgwriter
