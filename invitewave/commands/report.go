package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/hyewave/invitewave/invitewave"
	"github.com/hyewave/invitewave/invitewave/fraud"
	"github.com/hyewave/invitewave/invitewave/pool"
)

var Report = discord.SlashCommandCreate{
	Name:        "report",
	Description: "Report an invite code that did not work",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "code",
			Description: "The code that failed",
			Required:    true,
		},
	},
}

func ReportHandler(b *invitewave.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		userID := e.User().ID.String()
		data := e.SlashCommandInteractionData()
		code := pool.NormalizeCode(data.String("code"))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if !pool.ValidCode(code) {
			return reply(e, "That does not look like a valid invite code.")
		}

		if !b.Gatekeeper.Allowed(ctx, userID) {
			return reply(e, "Thanks, we logged your report and will look into it.")
		}

		result, err := b.Fraud.FileComplaint(ctx, userID, code)
		switch {
		case errors.Is(err, fraud.ErrComplaintLimit):
			return reply(e, "You have reached the maximum number of reports.")
		case errors.Is(err, fraud.ErrComplaintCooldown):
			return reply(e, "Please wait a few minutes before filing another report.")
		case err != nil:
			return reply(e, "Something went wrong, please try again later.")
		}

		if result.Requeued {
			return reply(e, fmt.Sprintf("Thanks, we logged your report. You are back on the waitlist at position %d.", result.QueuePosition))
		}
		return reply(e, "Thanks, we logged your report and will look into it.")
	}
}
