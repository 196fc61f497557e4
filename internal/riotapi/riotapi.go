package riotapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"verilol/internal/common"

	"github.com/rs/zerolog/log"
)

// Riot schema
const RIOT_SCHEMA = "https://%s.api.riotgames.com"

// Url that helps decide the version of the data dragon assets
const VERSIONS_JSON = "https://ddragon.leagueoflegends.com/api/versions.json"

// Routes inside the riot API
const ROUTE_ACCOUNT_PUUID = "/riot/account/v1/accounts/by-riot-id/%s/%s"
const ROUTE_SUMMONER = "/lol/summoner/v4/summoners/by-puuid/%s"
const ROUTE_LEAGUE = "/lol/league/v4/entries/by-summoner/%s"

// Dragon route for profile icon images
const ROUTE_PROFILE_ICON = "https://ddragon.leagueoflegends.com/cdn/%s/img/profileicon/%d.png"

// Version to fall back to when the versions file cannot be fetched
const FALLBACK_VERSION = "14.8.1"

type RiotApi struct {
	proxy    common.Proxy
	regional string // routing for the account routes, e.g. "europe"
	platform string // routing for the summoner and league routes, e.g. "euw1"

	mu      sync.Mutex
	riotIds map[Puuid]RiotId // puuids are durable, so this cache never goes stale
	version string
}

func NewRiotApi(apiKey string, regional string, platform string, rateLimiter *common.RateLimiter) *RiotApi {

	var riotapi RiotApi

	riotapi.proxy = common.NewProxy(map[string]string{"X-Riot-Token": apiKey}, rateLimiter)
	riotapi.regional = regional
	riotapi.platform = platform
	riotapi.riotIds = map[Puuid]RiotId{}
	riotapi.version = FALLBACK_VERSION

	return &riotapi
}

// GetPuuid resolves a riot id to the durable account id
func (riotapi *RiotApi) GetPuuid(ctx context.Context, riotid RiotId) (Puuid, error) {

	// Check cache
	riotapi.mu.Lock()
	for key, value := range riotapi.riotIds {
		if value == riotid {
			riotapi.mu.Unlock()
			return key, nil
		}
	}
	riotapi.mu.Unlock()

	// Request
	url := fmt.Sprintf(RIOT_SCHEMA, riotapi.regional) + fmt.Sprintf(ROUTE_ACCOUNT_PUUID, riotid.GameName, riotid.TagLine)
	data, err := riotapi.request(ctx, url)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrAccountNotFound, &riotid)
		}
		return "", err
	}

	// Decode
	puuid, err := UnmarshalPuuid(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	log.Debug().Msg(fmt.Sprintf("Found puuid %s for riot id %s", puuid, &riotid))

	// Update cache
	riotapi.mu.Lock()
	riotapi.riotIds[puuid] = riotid
	riotapi.mu.Unlock()

	return puuid, nil
}

// GetSummoner fetches the current game-side identity for a puuid.
// The result is never cached: the profile icon has to be read fresh
// every time a verification is checked
func (riotapi *RiotApi) GetSummoner(ctx context.Context, puuid Puuid) (Summoner, error) {

	url := fmt.Sprintf(RIOT_SCHEMA, riotapi.platform) + fmt.Sprintf(ROUTE_SUMMONER, puuid)
	data, err := riotapi.request(ctx, url)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return Summoner{}, fmt.Errorf("%w: no summoner for puuid %s", ErrAccountNotFound, puuid)
		}
		return Summoner{}, err
	}

	summoner, err := UnmarshalSummoner(data)
	if err != nil {
		return Summoner{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return summoner, nil
}

// GetLeagues fetches the ranked entries of a summoner, one per queue
func (riotapi *RiotApi) GetLeagues(ctx context.Context, summonerId SummonerId) ([]League, error) {

	url := fmt.Sprintf(RIOT_SCHEMA, riotapi.platform) + fmt.Sprintf(ROUTE_LEAGUE, summonerId)
	data, err := riotapi.request(ctx, url)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// An unranked summoner is not an error condition
			return nil, nil
		}
		return nil, err
	}

	leagues, err := UnmarshalLeagues(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return leagues, nil
}

// GetRiotId returns the cached riot id for a puuid, if any
func (riotapi *RiotApi) GetRiotId(puuid Puuid) (RiotId, bool) {
	riotapi.mu.Lock()
	defer riotapi.mu.Unlock()
	riotid, ok := riotapi.riotIds[puuid]
	return riotid, ok
}

// ProfileIconUrl builds the data dragon url for a profile icon
func (riotapi *RiotApi) ProfileIconUrl(iconId int) string {
	riotapi.mu.Lock()
	defer riotapi.mu.Unlock()
	return fmt.Sprintf(ROUTE_PROFILE_ICON, riotapi.version, iconId)
}

// CheckPatchVersion fetches the latest version of the data dragon
// available so that icon urls point at current assets.
// On failure the previously known version stays in use
func (riotapi *RiotApi) CheckPatchVersion(ctx context.Context) error {

	data, err := riotapi.request(ctx, VERSIONS_JSON)
	if err != nil {
		return fmt.Errorf("could not request file %s: %w", VERSIONS_JSON, err)
	}

	var versions []string
	if err := json.Unmarshal(data, &versions); err != nil || len(versions) == 0 {
		return fmt.Errorf("%s file does not have the expected content", VERSIONS_JSON)
	}
	latestVersion := versions[0]

	riotapi.mu.Lock()
	defer riotapi.mu.Unlock()
	if riotapi.version != latestVersion {
		log.Info().Msg(fmt.Sprintf("Data dragon version updated from %s to %s", riotapi.version, latestVersion))
		riotapi.version = latestVersion
	}

	return nil
}

func (riotapi *RiotApi) request(ctx context.Context, url string) ([]byte, error) {

	log.Debug().Msg(fmt.Sprintf("Requesting to url %s", url))
	data, err := riotapi.proxy.Request(ctx, url)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRateLimited):
			return nil, ErrRateLimited
		case errors.Is(err, common.ErrNotFound):
			return nil, err
		default:
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return data, nil
}
