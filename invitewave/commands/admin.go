package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/hyewave/invitewave/invitewave"
	"github.com/hyewave/invitewave/invitewave/database/models"
	"github.com/hyewave/invitewave/invitewave/fraud"
	"github.com/hyewave/invitewave/invitewave/pool"
)

var Donate = discord.SlashCommandCreate{
	Name:        "donate",
	Description: "Add invite codes to the pool on behalf of the project (admin)",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "code",
			Description: "The invite code",
			Required:    true,
		},
		discord.ApplicationCommandOptionInt{
			Name:        "uses",
			Description: "How many uses to add (defaults to the per-code limit)",
		},
	},
}

// DonateHandler adds code uses under the donation alias so complaint
// fan-out never DMs the donating admin as a regular submitter.
func DonateHandler(b *invitewave.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		code := pool.NormalizeCode(data.String("code"))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if !pool.ValidCode(code) {
			return reply(e, "That does not look like a valid invite code.")
		}

		uses := b.Pool.UsageLimit()
		if n, ok := data.OptInt("uses"); ok && n > 0 {
			uses = n
		}

		added, err := b.Pool.AddSlots(ctx, code, fraud.DonationAlias(e.User().ID.String()), uses)
		if err != nil {
			return reply(e, "Something went wrong, please try again later.")
		}
		if added == 0 {
			return reply(e, "This code is already at its usage cap.")
		}
		return reply(e, fmt.Sprintf("Added %d use(s) of `%s` to the pool.", added, code))
	}
}

var Reset = discord.SlashCommandCreate{
	Name:        "reset",
	Description: "Clear a claimant's grant so they can rejoin the waitlist (admin)",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "user_id",
			Description: "The claimant to reset",
			Required:    true,
		},
	},
}

func ResetHandler(b *invitewave.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		target := data.String("user_id")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		claimant, err := b.ClaimantRepository.GetByID(ctx, target)
		if err != nil {
			return reply(e, "No such claimant.")
		}

		claimant.Status = models.ClaimantStatusNew
		claimant.GrantedCode = ""
		if err := b.ClaimantRepository.Update(ctx, claimant); err != nil {
			return reply(e, "Something went wrong, please try again later.")
		}
		return reply(e, fmt.Sprintf("Reset <@%s>; they can /join again.", target))
	}
}
