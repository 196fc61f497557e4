package bot

import (
	"fmt"

	"verilol/internal/riotapi"
	"verilol/internal/verification"

	"github.com/bwmarrin/discordgo"
)

func (bot *Bot) verifyEmbed(presentation verification.Presentation) *discordgo.MessageEmbed {

	seconds := int(bot.opts.ChallengeTTL.Seconds())
	return &discordgo.MessageEmbed{
		Title: bot.catalog.Render("verify.title", nil),
		Description: bot.catalog.Render("verify.instructions", map[string]any{
			"RiotId":  presentation.RiotId.String(),
			"Seconds": seconds,
		}),
		Image: &discordgo.MessageEmbedImage{URL: presentation.IconUrl},
		Color: bot.opts.EmbedColor,
	}
}

func (bot *Bot) rankEmbed(riotid riotapi.RiotId, leagues []riotapi.League) *discordgo.MessageEmbed {

	embed := &discordgo.MessageEmbed{
		Title: bot.catalog.Render("rank.title", map[string]any{"RiotId": riotid.String()}),
		Color: bot.opts.EmbedColor,
	}
	for _, league := range leagues {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: fmt.Sprintf("**%s**", league.QueueType),
			Value: bot.catalog.Render("rank.entry", map[string]any{
				"Tier":    league.Tier,
				"Rank":    league.Rank,
				"Lps":     league.Lps,
				"Winrate": int(league.Winrate),
				"Wins":    league.Wins,
				"Losses":  league.Losses,
			}),
			Inline: false,
		})
	}
	return embed
}
