package players

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"verilol/internal/riotapi"

	"github.com/rs/zerolog/log"
)

// Player is a guild member with a verified account, kept so the
// periodic refresh can keep their tier role current
type Player struct {
	UserId     string             `json:"user_id"`
	Puuid      riotapi.Puuid      `json:"puuid"`
	SummonerId riotapi.SummonerId `json:"summoner_id"`
	RiotId     string             `json:"riot_id"`
	Tier       string             `json:"tier"`
	VerifiedAt time.Time          `json:"verified_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// Registry persists verified players in a small json file, one record
// per discord user. The whole file is rewritten on every change, which
// is fine at guild scale
type Registry struct {
	mu       sync.Mutex
	filename string
	players  map[string]Player
}

func NewRegistry(filename string) (*Registry, error) {

	r := &Registry{filename: filename, players: map[string]Player{}}

	data, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read players file %s: %w", filename, err)
	}

	var file struct {
		Players []Player `json:"players"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("players file %s is not correctly formatted: %w", filename, err)
	}
	for _, player := range file.Players {
		r.players[player.UserId] = player
	}
	log.Info().Msg(fmt.Sprintf("Loaded %d verified players from %s", len(r.players), filename))

	return r, nil
}

// Save upserts a player and persists the file
func (r *Registry) Save(player Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	player.UpdatedAt = time.Now()
	r.players[player.UserId] = player
	return r.persist()
}

// Get returns the record for a discord user, if any
func (r *Registry) Get(userId string) (Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	player, ok := r.players[userId]
	return player, ok
}

// All returns every verified player, ordered by user id so the
// refresh walks them deterministically
func (r *Registry) All() []Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]Player, 0, len(r.players))
	for _, player := range r.players {
		all = append(all, player)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UserId < all[j].UserId })
	return all
}

// Remove deletes the record for a discord user
func (r *Registry) Remove(userId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[userId]; !ok {
		return nil
	}
	delete(r.players, userId)
	return r.persist()
}

func (r *Registry) persist() error {

	var file struct {
		Players []Player `json:"players"`
	}
	for _, player := range r.players {
		file.Players = append(file.Players, player)
	}
	sort.Slice(file.Players, func(i, j int) bool { return file.Players[i].UserId < file.Players[j].UserId })

	data, err := json.MarshalIndent(&file, "", "  ")
	if err != nil {
		return err
	}

	// Write-and-rename so a crash never leaves a half-written file
	tmp := r.filename + ".tmp"
	if dir := filepath.Dir(r.filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.filename)
}
