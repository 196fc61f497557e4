package riotapi

import (
	"errors"
	"testing"
)

func TestParseRiotId(t *testing.T) {

	riotid, err := ParseRiotId("Kai/WEEBx")
	if err != nil {
		t.Fatalf("ParseRiotId: %v", err)
	}
	if riotid.GameName != "Kai" || riotid.TagLine != "WEEBx" {
		t.Fatalf("unexpected riot id: %+v", riotid)
	}

	// The in-game hashtag form is accepted too
	riotid, err = ParseRiotId("Kai#WEEBx")
	if err != nil {
		t.Fatalf("ParseRiotId with hashtag: %v", err)
	}
	if riotid.String() != "Kai#WEEBx" {
		t.Fatalf("unexpected riot id: %s", &riotid)
	}

	// Surrounding spaces are trimmed
	riotid, err = ParseRiotId(" Kai / WEEBx ")
	if err != nil {
		t.Fatalf("ParseRiotId with spaces: %v", err)
	}
	if riotid.GameName != "Kai" || riotid.TagLine != "WEEBx" {
		t.Fatalf("spaces were not trimmed: %+v", riotid)
	}
}

func TestParseRiotIdMalformed(t *testing.T) {
	for _, handle := range []string{"InvalidHandleNoSlash", "", "/Tag", "Name/", "  /  "} {
		if _, err := ParseRiotId(handle); !errors.Is(err, ErrMalformedHandle) {
			t.Fatalf("expected ErrMalformedHandle for %q, got %v", handle, err)
		}
	}
}

func TestSoloQueue(t *testing.T) {

	leagues := []League{
		{QueueType: "RANKED_FLEX_SR", Tier: "SILVER"},
		{QueueType: QueueSoloQ, Tier: "GOLD"},
	}
	solo, ok := SoloQueue(leagues)
	if !ok || solo.Tier != "GOLD" {
		t.Fatalf("expected the solo queue entry, got %+v (%v)", solo, ok)
	}

	if _, ok := SoloQueue([]League{{QueueType: "RANKED_FLEX_SR"}}); ok {
		t.Fatalf("expected no solo queue entry")
	}
	if _, ok := SoloQueue(nil); ok {
		t.Fatalf("expected no solo queue entry for empty leagues")
	}
}

func TestUnmarshalLeaguesComputesWinrate(t *testing.T) {

	data := []byte(`[{"queueType":"RANKED_SOLO_5x5","tier":"GOLD","rank":"II","leaguePoints":75,"wins":60,"losses":40}]`)
	leagues, err := UnmarshalLeagues(data)
	if err != nil {
		t.Fatalf("UnmarshalLeagues: %v", err)
	}
	if len(leagues) != 1 {
		t.Fatalf("expected one league, got %d", len(leagues))
	}
	if leagues[0].Winrate != 60 {
		t.Fatalf("expected winrate 60, got %f", leagues[0].Winrate)
	}
	if leagues[0].Lps != 75 {
		t.Fatalf("expected 75 league points, got %d", leagues[0].Lps)
	}
}

func TestUnmarshalSummoner(t *testing.T) {

	data := []byte(`{"id":"sum-1","profileIconId":23,"summonerLevel":140}`)
	summoner, err := UnmarshalSummoner(data)
	if err != nil {
		t.Fatalf("UnmarshalSummoner: %v", err)
	}
	if summoner.Id != "sum-1" || summoner.ProfileIconId != 23 {
		t.Fatalf("unexpected summoner: %+v", summoner)
	}
}
