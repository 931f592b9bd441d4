// Command msgwriter-demo builds a sample .msg file end to end through
// the msgwriter façade and writes it to the path given by -out. It is a
// smoke test for the library, not part of its contract.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	msgwriter "github.com/yuphing-ong/outlook-msg-writer"
)

func main() {
	out := flag.String("out", "demo.msg", "path to write the generated .msg file to")
	flag.Parse()

	b, err := msgwriter.NewBuilder(
		msgwriter.WithNow(clockAt(time.Now().UTC())),
	)
	if err != nil {
		log.Fatalf("msgwriter-demo: %v", err)
	}

	b.SetSubject("Quarterly update")
	b.SetSender("alice@example.com", "Alice Example")
	b.SetBodyPlainText("See attached for the quarterly figures.")
	b.SetBodyHTML("<p>See attached for the quarterly figures.</p>")
	b.AddRecipient(msgwriter.RecipientTo, "bob@example.com", "Bob Example")
	b.AddRecipient(msgwriter.RecipientCC, "carol@example.com", "Carol Example")
	b.AddAttachment("figures.csv", []byte("quarter,revenue\nQ1,1000\n"))
	b.StartConversation("Quarterly update")

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("msgwriter-demo: creating %s: %v", *out, err)
	}
	defer f.Close()

	if err := b.Write(f); err != nil {
		log.Fatalf("msgwriter-demo: writing message: %v", err)
	}

	fmt.Printf("wrote %s\n", *out)
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func clockAt(t time.Time) fixedClock { return fixedClock(t) }
