package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"verilol/internal/riotapi"

	"github.com/rs/zerolog/log"
)

// refreshRanks walks the verified players and re-applies their tier
// role when the provider reports a different tier than the last one
// recorded. Players that dropped their ranked data keep their role
func (bot *Bot) refreshRanks() {

	all := bot.registry.All()
	if len(all) == 0 {
		return
	}
	log.Info().Msg(fmt.Sprintf("Refreshing ranks of %d verified players", len(all)))

	for _, player := range all {

		ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
		leagues, err := bot.riotapi.GetLeagues(ctx, player.SummonerId)
		cancel()
		if err != nil {
			log.Warn().Msg(fmt.Sprintf("Could not refresh rank of %s: %v", player.RiotId, err))
			continue
		}
		solo, ok := riotapi.SoloQueue(leagues)
		if !ok || strings.EqualFold(solo.Tier, player.Tier) {
			continue
		}

		roleName, err := bot.resolver.Apply(player.UserId, solo.Tier)
		if err != nil {
			log.Error().Msg(fmt.Sprintf("Could not update role of %s to tier %s: %v", player.RiotId, solo.Tier, err))
			continue
		}
		log.Info().Msg(fmt.Sprintf("Player %s moved from %s to %s, role %s applied", player.RiotId, player.Tier, solo.Tier, roleName))

		player.Tier = solo.Tier
		if err := bot.registry.Save(player); err != nil {
			log.Error().Msg(fmt.Sprintf("Could not persist refreshed player %s: %v", player.UserId, err))
		}
	}
}

// housekeeping keeps the data dragon version current so icon urls
// point at assets of the live patch
func (bot *Bot) housekeeping() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := bot.riotapi.CheckPatchVersion(ctx); err != nil {
		log.Info().Msg(fmt.Sprintf("Could not check patch version: %v", err))
	}
}
