package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/hyewave/invitewave/invitewave"
	"github.com/hyewave/invitewave/invitewave/database/repositories"
)

var Status = discord.SlashCommandCreate{
	Name:        "status",
	Description: "Show your waitlist position and the pool size",
}

func StatusHandler(b *invitewave.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		userID := e.User().ID.String()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		// The advisory counter is good enough for display; no need to hit
		// a live count on every status check.
		estimate := b.Pool.EstimatedAvailable(ctx)

		position, err := b.Waitlist.Position(ctx, userID)
		if err != nil {
			if repositories.IsNotFound(err) {
				return reply(e, fmt.Sprintf("You are not on the waitlist. Codes in the pool: about %d. Use /join to get in line.", estimate))
			}
			return reply(e, "Something went wrong, please try again later.")
		}

		return reply(e, fmt.Sprintf("You are at position %d. Codes in the pool: about %d.", position, estimate))
	}
}
