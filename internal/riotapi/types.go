package riotapi

import (
	"errors"
	"fmt"
	"strings"
)

type Puuid string
type SummonerId string

type RiotId struct {
	GameName string
	TagLine  string
}

// Summoner is the game-side identity of an account: the internal
// summoner id used by the league routes and the currently set
// profile icon
type Summoner struct {
	Id            SummonerId
	ProfileIconId int
}

type League struct {
	QueueType string
	Tier      string
	Rank      string
	Lps       int `json:"leaguePoints"`
	Wins      int
	Losses    int
	Winrate   float32
}

// Queue the verification cares about
const QueueSoloQ = "RANKED_SOLO_5x5"

var (
	ErrMalformedHandle = errors.New("handle is not correctly formatted")
	ErrAccountNotFound = errors.New("account not found")
	ErrUnavailable     = errors.New("riot api unavailable")
	ErrRateLimited     = errors.New("riot api rate limited")
)

func (riotid *RiotId) String() string {
	return fmt.Sprintf("%s#%s", riotid.GameName, riotid.TagLine)
}

// ParseRiotId extracts a riot id from the handle a user types.
// The commands document the `Name/Tag` form, but `Name#Tag` is how
// riot ids are written in game, so both separators are accepted
func ParseRiotId(handle string) (RiotId, error) {

	separator := strings.IndexAny(handle, "/#")
	if separator == -1 {
		return RiotId{}, fmt.Errorf("%w: %q", ErrMalformedHandle, handle)
	}

	gameName := strings.TrimSpace(handle[:separator])
	tagLine := strings.TrimSpace(handle[separator+1:])
	if gameName == "" || tagLine == "" {
		return RiotId{}, fmt.Errorf("%w: %q", ErrMalformedHandle, handle)
	}

	return RiotId{GameName: gameName, TagLine: tagLine}, nil
}

// SoloQueue selects the solo queue entry among the provided leagues
func SoloQueue(leagues []League) (League, bool) {
	for _, league := range leagues {
		if league.QueueType == QueueSoloQ {
			return league, true
		}
	}
	return League{}, false
}
