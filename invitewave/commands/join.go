package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/hyewave/invitewave/invitewave"
	"github.com/hyewave/invitewave/invitewave/database/models"
	"github.com/hyewave/invitewave/invitewave/database/repositories"
)

var Join = discord.SlashCommandCreate{
	Name:        "join",
	Description: "Join the invite waitlist",
}

func JoinHandler(b *invitewave.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		userID := e.User().ID.String()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		claimant, err := b.ClaimantRepository.GetOrCreate(ctx, userID, string(e.Locale()))
		if err != nil {
			return reply(e, "Something went wrong, please try again later.")
		}

		if claimant.GrantedCode != "" {
			return reply(e, "You already received a code. If it did not work, use /report.")
		}
		if claimant.GrantsReceived >= models.MaxGrantsPerClaimant {
			return reply(e, "You have already received the maximum number of codes.")
		}

		// Shadow-banned claimants get the normal success reply with a
		// plausible position, but nothing is written.
		if !b.Gatekeeper.Allowed(ctx, userID) {
			size, serr := b.Waitlist.Size(ctx)
			if serr != nil {
				size = 0
			}
			return reply(e, fmt.Sprintf("You are on the waitlist at position %d. We will DM you a code when it is your turn.", size+1))
		}

		position, err := b.Waitlist.Admit(ctx, userID)
		if errors.Is(err, repositories.ErrAlreadyQueued) {
			current, perr := b.Waitlist.Position(ctx, userID)
			if perr == nil {
				return reply(e, fmt.Sprintf("You are already on the waitlist at position %d.", current))
			}
			return reply(e, "You are already on the waitlist.")
		}
		if err != nil {
			return reply(e, "Something went wrong, please try again later.")
		}

		claimant.Status = models.ClaimantStatusWaiting
		if err := b.ClaimantRepository.Update(ctx, claimant); err != nil {
			return reply(e, "Something went wrong, please try again later.")
		}

		return reply(e, fmt.Sprintf("You are on the waitlist at position %d. We will DM you a code when it is your turn.", position))
	}
}

func reply(e *handler.CommandEvent, content string) error {
	return e.CreateMessage(discord.NewMessageCreateBuilder().
		SetContent(content).
		SetEphemeral(true).
		Build())
}
