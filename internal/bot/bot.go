package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"verilol/internal/common"
	"verilol/internal/locale"
	"verilol/internal/players"
	"verilol/internal/riotapi"
	"verilol/internal/roles"
	"verilol/internal/verification"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// Custom id prefix of the confirm button. Only the opaque challenge id
// travels inside the control, never the expected icon or the account
const confirmPrefix = "verify-confirm:"

// How long one interaction is given to finish its provider calls
const interactionTimeout = 30 * time.Second

type Options struct {
	GuildId       string
	EmbedColor    int
	ChallengeTTL  time.Duration
	EnableRefresh bool
	RefreshCycle  time.Duration
	MainCycle     time.Duration
}

type Bot struct {
	opts     Options
	workflow *verification.Workflow
	riotapi  *riotapi.RiotApi
	registry *players.Registry
	resolver *roles.Resolver
	catalog  *locale.Catalog
	sweep    func() int // nil when the store expires entries on its own

	refreshExecutor      common.TimedExecutor
	housekeepingExecutor common.TimedExecutor
}

func New(opts Options, workflow *verification.Workflow, riotApi *riotapi.RiotApi, registry *players.Registry, resolver *roles.Resolver, catalog *locale.Catalog, sweep func() int) *Bot {

	if opts.MainCycle <= 0 {
		opts.MainCycle = 30 * time.Second
	}

	bot := &Bot{
		opts:     opts,
		workflow: workflow,
		riotapi:  riotApi,
		registry: registry,
		resolver: resolver,
		catalog:  catalog,
		sweep:    sweep,
	}
	bot.refreshExecutor = common.NewTimedExecutor(opts.RefreshCycle, bot.refreshRanks)
	bot.housekeepingExecutor = common.NewTimedExecutor(24*time.Hour, bot.housekeeping)

	return bot
}

// Run opens the provided session and serves interactions until the
// process is interrupted. The session is created by the caller because
// the role resolver talks through it as well
func (bot *Bot) Run(discord *discordgo.Session) error {

	discord.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers

	// Event handler
	discord.AddHandler(bot.handleInteraction)

	// Open session
	if err := discord.Open(); err != nil {
		return fmt.Errorf("could not open discord session: %w", err)
	}
	defer discord.Close()

	if err := bot.registerCommands(discord); err != nil {
		return err
	}

	// Keep the bot running until there is an os interruption (ctrl + C),
	// giving the periodic tasks a chance to run every cycle
	log.Info().Msg("Bot is running")
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	ticker := time.NewTicker(bot.opts.MainCycle)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if bot.sweep != nil {
				bot.sweep()
			}
			if bot.opts.EnableRefresh {
				bot.refreshExecutor.Execute()
			}
			bot.housekeepingExecutor.Execute()
		case <-interrupt:
			log.Info().Msg("Shutting down")
			return nil
		}
	}
}

func (bot *Bot) registerCommands(discord *discordgo.Session) error {

	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "verify",
			Description: "Verify that you own a League account and receive your tier role",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "summoner",
					Description: "Your riot id as Name/Tag (e.g. Kai/WEEBx)",
					Required:    true,
				},
			},
		},
		{
			Name:        "rank",
			Description: "Print the current rank of a player",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "summoner",
					Description: "Riot id as Name/Tag (e.g. Kai/WEEBx)",
					Required:    true,
				},
			},
		},
	}

	if _, err := discord.ApplicationCommandBulkOverwrite(discord.State.User.ID, bot.opts.GuildId, commands); err != nil {
		return fmt.Errorf("could not register slash commands: %w", err)
	}
	log.Info().Msg(fmt.Sprintf("Registered %d slash commands in guild %s", len(commands), bot.opts.GuildId))
	return nil
}

func (bot *Bot) handleInteraction(discord *discordgo.Session, interaction *discordgo.InteractionCreate) {

	// Interactions outside the configured guild are not served
	if interaction.GuildID != bot.opts.GuildId || interaction.Member == nil {
		return
	}

	switch interaction.Type {
	case discordgo.InteractionApplicationCommand:
		data := interaction.ApplicationCommandData()
		switch data.Name {
		case "verify":
			bot.handleVerify(discord, interaction, commandOption(data, "summoner"))
		case "rank":
			bot.handleRank(discord, interaction, commandOption(data, "summoner"))
		default:
			log.Warn().Msg(fmt.Sprintf("Received unknown command %q", data.Name))
		}
	case discordgo.InteractionMessageComponent:
		customId := interaction.MessageComponentData().CustomID
		if challengeId, ok := strings.CutPrefix(customId, confirmPrefix); ok {
			bot.handleConfirm(discord, interaction, challengeId)
		}
	}
}

func (bot *Bot) handleVerify(discord *discordgo.Session, interaction *discordgo.InteractionCreate, handle string) {

	userId := interaction.Member.User.ID
	log.Info().Msg(fmt.Sprintf("User %s starts verification for %q", userId, handle))

	// The provider calls may well exceed the acknowledgment window,
	// so acknowledge now and deliver the result as a followup
	if !bot.acknowledge(discord, interaction) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	presentation, err := bot.workflow.Start(ctx, handle, userId)
	if err != nil {
		bot.followUpText(discord, interaction, bot.startErrorMessage(err, handle))
		return
	}

	bot.followUp(discord, interaction, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{bot.verifyEmbed(presentation)},
		Components: []discordgo.MessageComponent{discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{discordgo.Button{
				CustomID: confirmPrefix + presentation.ChallengeId,
				Label:    bot.catalog.Render("verify.button", nil),
				Style:    discordgo.SuccessButton,
			}},
		}},
		Flags: discordgo.MessageFlagsEphemeral,
	})
}

func (bot *Bot) handleConfirm(discord *discordgo.Session, interaction *discordgo.InteractionCreate, challengeId string) {

	userId := interaction.Member.User.ID
	log.Debug().Msg(fmt.Sprintf("User %s confirms challenge %s", userId, challengeId))

	if !bot.acknowledge(discord, interaction) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	result, err := bot.workflow.Confirm(ctx, challengeId, userId)
	if err != nil {
		bot.followUpText(discord, interaction, bot.confirmErrorMessage(err))
		return
	}

	// Remember the player so the periodic refresh keeps the role current
	record := players.Player{
		UserId:     userId,
		Puuid:      result.AccountId,
		SummonerId: result.SummonerId,
		Tier:       result.Tier,
		VerifiedAt: time.Now(),
	}
	if riotid, ok := bot.riotapi.GetRiotId(result.AccountId); ok {
		record.RiotId = riotid.String()
	}
	if err := bot.registry.Save(record); err != nil {
		log.Error().Msg(fmt.Sprintf("Could not persist verified player %s: %v", userId, err))
	}

	bot.followUpText(discord, interaction, bot.catalog.Render("verify.success", map[string]any{
		"Role": result.RoleName,
		"Tier": result.Tier,
	}))
}

func (bot *Bot) handleRank(discord *discordgo.Session, interaction *discordgo.InteractionCreate, handle string) {

	if !bot.acknowledge(discord, interaction) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	riotid, err := riotapi.ParseRiotId(handle)
	if err != nil {
		bot.followUpText(discord, interaction, bot.catalog.Render("verify.malformed_handle", nil))
		return
	}

	puuid, err := bot.riotapi.GetPuuid(ctx, riotid)
	if err != nil {
		bot.followUpText(discord, interaction, bot.startErrorMessage(err, handle))
		return
	}
	summoner, err := bot.riotapi.GetSummoner(ctx, puuid)
	if err != nil {
		bot.followUpText(discord, interaction, bot.startErrorMessage(err, handle))
		return
	}
	leagues, err := bot.riotapi.GetLeagues(ctx, summoner.Id)
	if err != nil {
		bot.followUpText(discord, interaction, bot.startErrorMessage(err, handle))
		return
	}

	if len(leagues) == 0 {
		bot.followUpText(discord, interaction, bot.catalog.Render("rank.unranked", map[string]any{"RiotId": riotid.String()}))
		return
	}
	bot.followUp(discord, interaction, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{bot.rankEmbed(riotid, leagues)},
		Flags:  discordgo.MessageFlagsEphemeral,
	})
}

// startErrorMessage maps the errors of the start path (and of plain
// lookups) to a localized user message
func (bot *Bot) startErrorMessage(err error, handle string) string {
	switch {
	case errors.Is(err, riotapi.ErrMalformedHandle):
		return bot.catalog.Render("verify.malformed_handle", nil)
	case errors.Is(err, riotapi.ErrAccountNotFound):
		return bot.catalog.Render("verify.account_not_found", map[string]any{"Handle": handle})
	case errors.Is(err, riotapi.ErrRateLimited):
		return bot.catalog.Render("common.rate_limited", nil)
	case errors.Is(err, riotapi.ErrUnavailable):
		return bot.catalog.Render("common.provider_unavailable", nil)
	case errors.Is(err, verification.ErrInvalidRange):
		log.Error().Msg(fmt.Sprintf("Icon range misconfigured: %v", err))
		return bot.catalog.Render("common.error", nil)
	default:
		log.Error().Msg(fmt.Sprintf("Verification start failed: %v", err))
		return bot.catalog.Render("common.error", nil)
	}
}

// confirmErrorMessage maps the errors of the confirm path.
// Icon mismatch and missing ranked data are expected outcomes and are
// not logged as errors
func (bot *Bot) confirmErrorMessage(err error) string {
	switch {
	case errors.Is(err, verification.ErrIconMismatch):
		return bot.catalog.Render("verify.mismatch", nil)
	case errors.Is(err, verification.ErrNoRankedData):
		return bot.catalog.Render("verify.no_ranked", nil)
	case errors.Is(err, verification.ErrChallengeExpired):
		return bot.catalog.Render("verify.expired", nil)
	case errors.Is(err, verification.ErrChallengeNotFound):
		return bot.catalog.Render("verify.not_found", nil)
	case errors.Is(err, verification.ErrChallengeForbidden):
		return bot.catalog.Render("verify.forbidden", nil)
	case errors.Is(err, roles.ErrUnknownTier), errors.Is(err, roles.ErrRoleNotConfigured):
		return bot.catalog.Render("verify.misconfigured", nil)
	case errors.Is(err, riotapi.ErrRateLimited):
		return bot.catalog.Render("common.rate_limited", nil)
	case errors.Is(err, riotapi.ErrUnavailable):
		return bot.catalog.Render("common.provider_unavailable", nil)
	default:
		log.Error().Msg(fmt.Sprintf("Verification confirm failed: %v", err))
		return bot.catalog.Render("common.error", nil)
	}
}

func commandOption(data discordgo.ApplicationCommandInteractionData, name string) string {
	for _, option := range data.Options {
		if option.Name == name {
			return option.StringValue()
		}
	}
	return ""
}
