package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/vovakirdan/dmview/internal/conversation"
	"github.com/vovakirdan/dmview/internal/store"
	"github.com/vovakirdan/dmview/internal/store/rest"
)

func main() {
	if err := run(); err != nil {
		log.Printf("store_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "http://localhost:8080", "message store base URL")
	sender := flag.String("sender", "smoke-a@example.com", "sender id")
	recipient := flag.String("recipient", "smoke-b@example.com", "recipient id")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := rest.NewClient(*addr, *timeout, nil)
	pair := conversation.Participants{Sender: *sender, Recipient: *recipient}

	id, err := client.CreateMessage(ctx, store.Message{Sender: *sender, Recipient: *recipient, Message: *text})
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	fmt.Printf("created id=%s\n", id)

	if err := expect(ctx, client, pair, id, *text); err != nil {
		return err
	}

	edited := *text + " (edited)"
	if err := client.UpdateMessage(ctx, id, store.Message{Sender: *sender, Recipient: *recipient, Message: edited}); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	if err := expect(ctx, client, pair, id, edited); err != nil {
		return err
	}

	if err := client.DeleteMessage(ctx, id); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if err := expect(ctx, client, pair, id, ""); err != nil {
		return err
	}

	fmt.Println("smoke test passed")
	return nil
}

// expect lists the pair's messages and checks id has want as text, or is gone when want is empty.
func expect(ctx context.Context, client *rest.Client, pair conversation.Participants, id, want string) error {
	msgs, err := client.ListMessages(ctx)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}

	for _, m := range conversation.Filter(msgs, pair) {
		if m.ID != id {
			continue
		}
		if want == "" {
			return fmt.Errorf("message %s still listed after delete", id)
		}
		if m.Message != want {
			return fmt.Errorf("message %s: got %q, want %q", id, m.Message, want)
		}
		fmt.Printf("listed id=%s sender=%s message=%q\n", m.ID, m.Sender, m.Message)
		return nil
	}

	if want != "" {
		return fmt.Errorf("message %s not listed", id)
	}
	fmt.Printf("deleted id=%s\n", id)
	return nil
}
