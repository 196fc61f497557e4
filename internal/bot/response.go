package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// acknowledge defers the interaction with an ephemeral response, so the
// slow provider calls can finish after the acknowledgment window.
// Returns false when even the acknowledgment failed
func (bot *Bot) acknowledge(discord *discordgo.Session, interaction *discordgo.InteractionCreate) bool {
	err := discord.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		log.Error().Msg(fmt.Sprintf("Could not acknowledge interaction: %v", err))
		return false
	}
	return true
}

func (bot *Bot) followUp(discord *discordgo.Session, interaction *discordgo.InteractionCreate, params *discordgo.WebhookParams) {
	if _, err := discord.FollowupMessageCreate(interaction.Interaction, true, params); err != nil {
		log.Error().Msg(fmt.Sprintf("Could not send followup: %v", err))
	}
}

func (bot *Bot) followUpText(discord *discordgo.Session, interaction *discordgo.InteractionCreate, content string) {
	bot.followUp(discord, interaction, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
}
