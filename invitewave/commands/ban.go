package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/hyewave/invitewave/invitewave"
)

var Ban = discord.SlashCommandCreate{
	Name:        "ban",
	Description: "Ban a submitter and purge every code they donated (admin)",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "user_id",
			Description: "The submitter to ban",
			Required:    true,
		},
		discord.ApplicationCommandOptionString{
			Name:        "reason",
			Description: "Why",
			Required:    true,
		},
	},
}

func BanHandler(b *invitewave.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		target := data.String("user_id")
		reason := data.String("reason")

		// Purge fan-out cost scales with the claimant population; give it
		// room.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if err := e.DeferCreateMessage(true); err != nil {
			return fmt.Errorf("failed to defer message: %w", err)
		}

		report, err := b.Fraud.BanSubmitter(ctx, target, reason)
		if err != nil {
			_, uerr := e.UpdateInteractionResponse(discord.NewMessageUpdateBuilder().
				SetContent("Ban failed, see operator channel.").
				Build())
			if uerr != nil {
				return uerr
			}
			return err
		}

		_, err = e.UpdateInteractionResponse(discord.NewMessageUpdateBuilder().
			SetContent(fmt.Sprintf("Banned <@%s>: purged %d slots across %d codes, reset %d claimants.",
				target, report.SlotsPurged, len(report.Codes), report.VictimsReset)).
			Build())
		return err
	}
}
