package main

import (
	"fmt"
	"os"

	"verilol/internal/bot"
	"verilol/internal/common"
	"verilol/internal/config"
	"verilol/internal/locale"
	"verilol/internal/players"
	"verilol/internal/riotapi"
	"verilol/internal/roles"
	"verilol/internal/verification"

	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration is invalid: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Riot API behind the shared rate limiter
	rateLimiter := common.NewRateLimiter(cfg.Restrictions, cfg.MaxConcurrent, cfg.MinSpacing, cfg.RateCooldown)
	riotApi := riotapi.NewRiotApi(cfg.RiotToken, cfg.Regional, cfg.Platform, rateLimiter)

	// Challenge store: process memory for a single instance, redis when
	// the deployment runs replicas
	var store verification.Store
	var sweep func() int
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Msg(fmt.Sprintf("REDIS_URL is not valid: %v", err))
		}
		store = verification.NewRedisStore(redis.NewClient(redisOpts))
		log.Info().Msg("Challenges are kept in redis")
	} else {
		memory := verification.NewMemoryStore()
		store = memory
		sweep = memory.Sweep
		log.Info().Msg("Challenges are kept in process memory")
	}

	catalog, err := locale.New(cfg.Language, cfg.LocaleDir)
	if err != nil {
		log.Fatal().Msg(fmt.Sprintf("Could not load messages: %v", err))
	}

	registry, err := players.NewRegistry(cfg.PlayersFile)
	if err != nil {
		log.Fatal().Msg(fmt.Sprintf("Could not load players file: %v", err))
	}

	// The discord session is shared by the interaction handlers and the
	// role resolver
	discord, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Fatal().Msg(fmt.Sprintf("Could not create discord session: %v", err))
	}

	resolver := roles.NewResolver(discord, cfg.GuildId, roles.NewMapping(cfg.TierRoles))
	workflow := verification.NewWorkflow(riotApi, store, resolver, cfg.ChallengeTTL, cfg.IconMin, cfg.IconMax)

	verilol := bot.New(bot.Options{
		GuildId:       cfg.GuildId,
		EmbedColor:    cfg.EmbedColor,
		ChallengeTTL:  cfg.ChallengeTTL,
		EnableRefresh: cfg.EnableRefresh,
		RefreshCycle:  cfg.RefreshCycle,
	}, workflow, riotApi, registry, resolver, catalog, sweep)

	if err := verilol.Run(discord); err != nil {
		log.Fatal().Msg(fmt.Sprintf("Bot stopped with error: %v", err))
	}
}
