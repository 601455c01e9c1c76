// Command chatctl is a terminal client for the messaging service. Keys live in
// a local file and every message is encrypted before it leaves the process.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"messaging-service/internal/auth"
	"messaging-service/internal/client"
	"messaging-service/internal/e2ee"
	"messaging-service/internal/models"
	"messaging-service/internal/timeline"
)

const usage = `usage: chatctl [flags] <command> [args]

commands:
  keygen                       create a key pair and publish the public key
  conversations                list conversations
  create <user-id>...          start a conversation
  invite <conversation> <email>
  send <conversation> <text>
  read <conversation>          print the latest messages
  watch <conversation>         follow a conversation
  lookup <email>
  contacts [status]
  befriend <user-id>
`

type app struct {
	api     *client.Client
	userID  uuid.UUID
	keyPath string
}

func main() {
	server := flag.String("server", envOr("CHATCTL_SERVER", "http://localhost:8083"), "service base url")
	token := flag.String("token", os.Getenv("CHATCTL_TOKEN"), "bearer token")
	keyPath := flag.String("keys", envOr("CHATCTL_KEYS", "chatctl-keys.json"), "key file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage); flag.PrintDefaults() }
	flag.Parse()

	if flag.NArg() == 0 || *token == "" {
		flag.Usage()
		os.Exit(2)
	}
	userID, err := auth.Subject(*token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "token: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{api: client.New(*server, *token), userID: userID, keyPath: *keyPath}
	if err := a.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "keygen":
		return a.keygen(ctx)
	case "conversations":
		return a.conversations(ctx)
	case "create":
		return a.create(ctx, args)
	case "invite":
		if len(args) != 2 {
			return fmt.Errorf("want <conversation> <email>")
		}
		convID, err := uuid.Parse(args[0])
		if err != nil {
			return err
		}
		part, err := a.api.AddParticipant(ctx, convID, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("added %s\n", part.UserID)
		return nil
	case "send":
		return a.send(ctx, args)
	case "read":
		return a.read(ctx, args)
	case "watch":
		return a.watch(ctx, args)
	case "lookup":
		if len(args) != 1 {
			return fmt.Errorf("want <email>")
		}
		user, err := a.api.LookupUser(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\t%s\thas key: %t\n", user.ID, user.Email, user.FullName, user.PublicKey != nil)
		return nil
	case "contacts":
		var status models.ContactStatus
		if len(args) > 0 {
			status = models.ContactStatus(args[0])
		}
		contacts, err := a.api.ListContacts(ctx, status)
		if err != nil {
			return err
		}
		for _, c := range contacts {
			fmt.Printf("%s\t%s\t%s\n", c.ID, c.ContactUserID, c.Status)
		}
		return nil
	case "befriend":
		if len(args) != 1 {
			return fmt.Errorf("want <user-id>")
		}
		target, err := uuid.Parse(args[0])
		if err != nil {
			return err
		}
		contact, err := a.api.AddContact(ctx, target)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\n", contact.ID, contact.Status)
		return nil
	default:
		return fmt.Errorf("unknown command")
	}
}

func (a *app) keygen(ctx context.Context) error {
	kp, err := e2ee.GenerateKeyPair()
	if err != nil {
		return err
	}
	if err := saveKeys(a.keyPath, a.userID, kp); err != nil {
		return err
	}
	updated, err := a.api.StorePublicKey(ctx, kp.PublicKey())
	if err != nil {
		return err
	}
	fmt.Printf("public key %s published to %d conversations\n", kp.PublicKey(), updated)
	return nil
}

func (a *app) session() (*e2ee.Session, error) {
	kp, err := loadKeys(a.keyPath, a.userID)
	if err != nil {
		return nil, fmt.Errorf("%w (run keygen first)", err)
	}
	return e2ee.NewSessionWithKeyPair(a.userID.String(), kp), nil
}

func (a *app) conversations(ctx context.Context) error {
	convs, err := a.api.ListConversations(ctx)
	if err != nil {
		return err
	}
	tl := timeline.NewConversations()
	tl.Upsert(convs...)
	for _, c := range tl.List() {
		name := c.Metadata.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("%s\t%s\t%d members\t%s\n", c.ID, name, c.Metadata.ParticipantCount, c.Metadata.LastMessage)
	}
	return nil
}

func (a *app) create(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	name := fs.String("name", "", "conversation name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("want at least one <user-id>")
	}
	ids := make([]uuid.UUID, 0, fs.NArg())
	for _, raw := range fs.Args() {
		id, err := uuid.Parse(raw)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	conv, err := a.api.CreateConversation(ctx, ids, models.ConversationMetadata{Name: *name})
	if err != nil {
		return err
	}
	fmt.Println(conv.ID)
	return nil
}

func (a *app) send(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("want <conversation> <text>")
	}
	convID, err := uuid.Parse(args[0])
	if err != nil {
		return err
	}
	session, err := a.session()
	if err != nil {
		return err
	}
	msg, err := a.api.SendText(ctx, session, convID, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Println(msg.ID)
	return nil
}

func (a *app) read(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("read", flag.ContinueOnError)
	limit := fs.Int("limit", 50, "messages to fetch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("want <conversation>")
	}
	convID, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return err
	}
	session, err := a.session()
	if err != nil {
		return err
	}
	msgs, err := a.api.ListMessages(ctx, convID, *limit, 0)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		printMessage(session, m)
	}
	return nil
}

func (a *app) watch(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("want <conversation>")
	}
	convID, err := uuid.Parse(args[0])
	if err != nil {
		return err
	}
	session, err := a.session()
	if err != nil {
		return err
	}

	feed, err := a.api.SubscribeMessages(ctx, convID)
	if err != nil {
		return err
	}
	defer feed.Close()

	tl := timeline.NewMessages(convID)
	seen := map[uuid.UUID]bool{}
	initial, err := a.api.ListMessages(ctx, convID, 0, 0)
	if err != nil {
		return err
	}
	tl.Upsert(initial...)
	for _, m := range tl.List() {
		seen[m.ID] = true
		printMessage(session, m)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-feed.Changes():
			if !ok {
				return feed.Err()
			}
			changed, err := client.ApplyMessageChange(tl, change)
			if err != nil || !changed {
				continue
			}
			for _, m := range tl.List() {
				if seen[m.ID] {
					continue
				}
				seen[m.ID] = true
				printMessage(session, m)
			}
		}
	}
}

func printMessage(session *e2ee.Session, m models.Message) {
	text, err := client.DecryptText(session, m)
	if err != nil {
		text = "[cannot decrypt: " + err.Error() + "]"
	}
	fmt.Printf("%s  %s: %s\n", m.CreatedAt.Format("2006-01-02 15:04"), m.SenderID, text)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
