package riotapi

import (
	"encoding/json"
)

func UnmarshalPuuid(data []byte) (Puuid, error) {

	var puuid struct {
		Puuid string
	}
	if err := json.Unmarshal(data, &puuid); err != nil {
		return "", err
	}

	return Puuid(puuid.Puuid), nil
}

func UnmarshalSummoner(data []byte) (Summoner, error) {

	var raw struct {
		Id            SummonerId
		ProfileIconId int
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Summoner{}, err
	}

	return Summoner{Id: raw.Id, ProfileIconId: raw.ProfileIconId}, nil
}

func UnmarshalLeagues(data []byte) ([]League, error) {

	// unmarshal
	var leagues []League
	if err := json.Unmarshal(data, &leagues); err != nil {
		return nil, err
	}

	// Handle internal data
	for i := range leagues {

		// winrate
		games := leagues[i].Wins + leagues[i].Losses
		if games > 0 {
			leagues[i].Winrate = 100.0 * float32(leagues[i].Wins) / float32(games)
		} else {
			leagues[i].Winrate = 0
		}
	}

	return leagues, nil
}
