package commands

import (
	"github.com/disgoorg/disgo/discord"
)

var Commands = []discord.ApplicationCommandCreate{
	Join,
	Submit,
	Report,
	Status,
	Ban,
	Donate,
	Reset,
}
