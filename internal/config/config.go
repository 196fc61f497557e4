package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"verilol/internal/common"
)

// Config is everything the process reads from the environment
type Config struct {
	DiscordToken string
	RiotToken    string
	GuildId      string

	Regional string // routing for riot account routes, e.g. "europe"
	Platform string // routing for summoner/league routes, e.g. "euw1"

	Language  string
	LocaleDir string

	RedisURL    string // empty keeps challenges in process memory
	PlayersFile string

	ChallengeTTL time.Duration
	IconMin      int
	IconMax      int

	MaxConcurrent int
	MinSpacing    time.Duration
	RateCooldown  time.Duration
	Restrictions  []common.Restriction

	TierRoles map[string]string

	EnableRefresh bool
	RefreshCycle  time.Duration

	EmbedColor int
	LogLevel   string
}

// The default tier role names mirror the riot tier names
var defaultTierRoles = map[string]string{
	"IRON":        "Iron",
	"BRONZE":      "Bronze",
	"SILVER":      "Silver",
	"GOLD":        "Gold",
	"PLATINUM":    "Platinum",
	"EMERALD":     "Emerald",
	"DIAMOND":     "Diamond",
	"MASTER":      "Master",
	"GRANDMASTER": "Grandmaster",
	"CHALLENGER":  "Challenger",
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func atoi(s string, def int) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func duration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}

func Load() (*Config, error) {

	cfg := &Config{
		Regional:      getenv("REGION", "europe"),
		Platform:      getenv("PLATFORM", "euw1"),
		Language:      getenv("LANGUAGE", "en"),
		LocaleDir:     getenv("LOCALE_DIR", ""),
		RedisURL:      getenv("REDIS_URL", ""),
		PlayersFile:   getenv("PLAYERS_FILE", "players.json"),
		ChallengeTTL:  duration(getenv("CHALLENGE_TTL", ""), 60*time.Second),
		IconMin:       atoi(getenv("ICON_MIN", ""), 1),
		IconMax:       atoi(getenv("ICON_MAX", ""), 28),
		MaxConcurrent: atoi(getenv("CONCURRENT_REQUESTS", ""), 5),
		MinSpacing:    time.Duration(atoi(getenv("REQUEST_TIME", ""), 1000)) * time.Millisecond,
		RateCooldown:  duration(getenv("RATE_COOLDOWN", ""), 30*time.Second),
		EnableRefresh: strings.EqualFold(getenv("ENABLE_REFRESH", "false"), "true"),
		RefreshCycle:  duration(getenv("REFRESH_CYCLE", ""), 24*time.Hour),
		LogLevel:      getenv("LOG_LEVEL", "info"),
	}

	cfg.DiscordToken = strings.TrimSpace(os.Getenv("DISCORD_TOKEN"))
	cfg.RiotToken = strings.TrimSpace(os.Getenv("RIOT_TOKEN"))
	cfg.GuildId = strings.TrimSpace(os.Getenv("GUILD_ID"))

	// Tier -> role mapping, a json object like the original RANKS config
	cfg.TierRoles = defaultTierRoles
	if v := strings.TrimSpace(os.Getenv("TIER_ROLES")); v != "" {
		parsed := map[string]string{}
		if err := json.Unmarshal([]byte(v), &parsed); err != nil {
			return nil, fmt.Errorf("TIER_ROLES is not a valid json object: %w", err)
		}
		if len(parsed) == 0 {
			return nil, errors.New("TIER_ROLES must not be empty")
		}
		cfg.TierRoles = parsed
	}

	// Windowed restrictions like "20/1s,100/2m" (riot development key)
	restrictions, err := parseRestrictions(getenv("RATE_RESTRICTIONS", "20/1s,100/2m"))
	if err != nil {
		return nil, err
	}
	cfg.Restrictions = restrictions

	color, err := parseColor(getenv("EMBED_COLOR", "#0099ff"))
	if err != nil {
		return nil, err
	}
	cfg.EmbedColor = color

	if cfg.DiscordToken == "" {
		return nil, errors.New("DISCORD_TOKEN is required")
	}
	if cfg.RiotToken == "" {
		return nil, errors.New("RIOT_TOKEN is required")
	}
	if cfg.GuildId == "" {
		return nil, errors.New("GUILD_ID is required")
	}
	if cfg.IconMin > cfg.IconMax {
		return nil, fmt.Errorf("icon range [%d, %d] is empty", cfg.IconMin, cfg.IconMax)
	}

	return cfg, nil
}

func parseRestrictions(value string) ([]common.Restriction, error) {
	var restrictions []common.Restriction
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.SplitN(part, "/", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("restriction %q is not of the form requests/duration", part)
		}
		requests, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil || requests <= 0 {
			return nil, fmt.Errorf("restriction %q has an invalid request count", part)
		}
		window, err := time.ParseDuration(strings.TrimSpace(fields[1]))
		if err != nil || window <= 0 {
			return nil, fmt.Errorf("restriction %q has an invalid duration", part)
		}
		restrictions = append(restrictions, common.Restriction{Requests: requests, Duration: window})
	}
	return restrictions, nil
}

func parseColor(value string) (int, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "#")
	color, err := strconv.ParseInt(value, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("EMBED_COLOR %q is not a hex color", value)
	}
	return int(color), nil
}
