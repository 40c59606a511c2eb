package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/hyewave/invitewave/invitewave"
	"github.com/hyewave/invitewave/invitewave/pool"
)

var Submit = discord.SlashCommandCreate{
	Name:        "submit",
	Description: "Return a fresh invite code to the pool",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "code",
			Description: "The invite code",
			Required:    true,
		},
	},
}

func SubmitHandler(b *invitewave.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		userID := e.User().ID.String()
		data := e.SlashCommandInteractionData()
		code := pool.NormalizeCode(data.String("code"))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if !pool.ValidCode(code) {
			return reply(e, "That does not look like a valid invite code. Codes are 6 letters or digits.")
		}

		claimant, err := b.ClaimantRepository.GetOrCreate(ctx, userID, string(e.Locale()))
		if err != nil {
			return reply(e, "Something went wrong, please try again later.")
		}
		if claimant.GrantedCode == code {
			return reply(e, "That is the code we sent you. Submit the new code the provider gave you after signing up.")
		}

		// Shadow ban: the banned see the same success copy, nothing is
		// written.
		if !b.Gatekeeper.Allowed(ctx, userID) {
			return reply(e, fmt.Sprintf("Thank you! Your code `%s` was added to the pool.", code))
		}

		added, err := b.Pool.AddSlots(ctx, code, userID, b.Pool.UsageLimit())
		if err != nil {
			return reply(e, "Something went wrong, please try again later.")
		}
		if added == 0 {
			total, cerr := b.Pool.CodeCount(ctx, code)
			if cerr != nil {
				return reply(e, "This code has already been fully used up. Thanks anyway!")
			}
			return reply(e, fmt.Sprintf("This code has already been fully used up (%d of %d uses). Thanks anyway!", total, b.Pool.UsageLimit()))
		}

		claimant.CodesReturned++
		if err := b.ClaimantRepository.Update(ctx, claimant); err != nil {
			return reply(e, "Something went wrong, please try again later.")
		}

		return reply(e, fmt.Sprintf("Thank you! Your code `%s` was added to the pool.", code))
	}
}
