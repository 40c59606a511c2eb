package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

// Notifier is the outbound edge of the core: allocation, fraud and
// generation all talk to claimants through it. Delivery is at-least-once;
// downstream state transitions are idempotent, so implementations may
// retry or drop on error without corrupting state.
type Notifier interface {
	CodeGranted(ctx context.Context, claimantID, code string) error
	Requeued(ctx context.Context, claimantID string, position int) error
	ComplaintCheck(ctx context.Context, claimantID, code string) error
	SubmitterFlagged(ctx context.Context, submitterID, code string) error
	GrantRevoked(ctx context.Context, claimantID string) error
	WaitlistReminder(ctx context.Context, claimantID string, position int) error
	Progress(ctx context.Context, claimantID string, percent int) error
	Document(ctx context.Context, claimantID, filename string, data []byte) error
	OperatorAlert(ctx context.Context, message string) error
}

type chatNotifier struct {
	client          bot.Client
	operatorChannel snowflake.ID
}

// NewChatNotifier sends notifications as direct messages through the chat
// client; operator alerts go to a fixed channel.
func NewChatNotifier(client bot.Client, operatorChannel snowflake.ID) Notifier {
	return &chatNotifier{client: client, operatorChannel: operatorChannel}
}

func (n *chatNotifier) dm(ctx context.Context, claimantID, content string) error {
	userID, err := snowflake.Parse(claimantID)
	if err != nil {
		return fmt.Errorf("invalid claimant id %q: %w", claimantID, err)
	}

	channel, err := n.client.Rest().CreateDMChannel(userID)
	if err != nil {
		return fmt.Errorf("failed to open DM channel: %w", err)
	}

	_, err = n.client.Rest().CreateMessage(channel.ID(), discord.NewMessageCreateBuilder().
		SetContent(content).
		Build())
	if err != nil {
		return fmt.Errorf("failed to send DM: %w", err)
	}
	return nil
}

func (n *chatNotifier) CodeGranted(ctx context.Context, claimantID, code string) error {
	return n.dm(ctx, claimantID, fmt.Sprintf("Your invite code is here: `%s`. Once you have used it, please return a fresh code to keep the wave going.", code))
}

func (n *chatNotifier) Requeued(ctx context.Context, claimantID string, position int) error {
	return n.dm(ctx, claimantID, fmt.Sprintf("You are back on the waitlist at position %d.", position))
}

func (n *chatNotifier) ComplaintCheck(ctx context.Context, claimantID, code string) error {
	return n.dm(ctx, claimantID, fmt.Sprintf("Someone reported the code `%s` you also received. Did it work for you? Reply with /confirm or /report.", code))
}

func (n *chatNotifier) SubmitterFlagged(ctx context.Context, submitterID, code string) error {
	return n.dm(ctx, submitterID, fmt.Sprintf("A code you submitted (`%s`) was reported as invalid. If this was a mistake, please get in touch.", code))
}

func (n *chatNotifier) GrantRevoked(ctx context.Context, claimantID string) error {
	return n.dm(ctx, claimantID, "The code you received was revoked as counterfeit. You can rejoin the waitlist with /join.")
}

func (n *chatNotifier) WaitlistReminder(ctx context.Context, claimantID string, position int) error {
	return n.dm(ctx, claimantID, fmt.Sprintf("Still with us? You are at position %d on the waitlist.", position))
}

func (n *chatNotifier) Progress(ctx context.Context, claimantID string, percent int) error {
	return n.dm(ctx, claimantID, fmt.Sprintf("Your video is %d%% done...", percent))
}

func (n *chatNotifier) Document(ctx context.Context, claimantID, filename string, data []byte) error {
	userID, err := snowflake.Parse(claimantID)
	if err != nil {
		return fmt.Errorf("invalid claimant id %q: %w", claimantID, err)
	}

	channel, err := n.client.Rest().CreateDMChannel(userID)
	if err != nil {
		return fmt.Errorf("failed to open DM channel: %w", err)
	}

	_, err = n.client.Rest().CreateMessage(channel.ID(), discord.NewMessageCreateBuilder().
		AddFile(filename, "", bytes.NewReader(data)).
		Build())
	if err != nil {
		return fmt.Errorf("failed to send document: %w", err)
	}
	return nil
}

func (n *chatNotifier) OperatorAlert(ctx context.Context, message string) error {
	_, err := n.client.Rest().CreateMessage(n.operatorChannel, discord.NewMessageCreateBuilder().
		SetContent("@here "+message).
		Build())
	if err != nil {
		slog.Error("Failed to deliver operator alert",
			slog.String("type", "error"),
			slog.String("message", message),
			slog.Any("error", err))
	}
	return err
}
