// Package seed loads the provisioned initial state of every team: roster, slot labels
// and prize pool. Reset restores teams from the same catalog.
package seed

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/ArowuTest/team-raffle-backend/internal/models"
	"gopkg.in/yaml.v3"
)

// ErrUnknownTeam is returned when a team is not part of the catalog
var ErrUnknownTeam = errors.New("team not in seed catalog")

// MemberSeed is a provisioned member
type MemberSeed struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// TeamSeed is the provisioned state of one team
type TeamSeed struct {
	TeamName string       `yaml:"teamname"`
	Members  []MemberSeed `yaml:"members"`
	Options  []string     `yaml:"options"`
	Prizes   []int64      `yaml:"prizes"`
}

// Catalog holds the seeds of every team, keyed by team name
type Catalog struct {
	teams map[string]TeamSeed
}

type catalogFile struct {
	Teams []TeamSeed `yaml:"teams"`
}

// Load reads and validates a catalog file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a yaml catalog
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	catalog := &Catalog{teams: make(map[string]TeamSeed, len(file.Teams))}
	for _, t := range file.Teams {
		if err := t.validate(); err != nil {
			return nil, err
		}
		if _, dup := catalog.teams[t.TeamName]; dup {
			return nil, fmt.Errorf("team %q: declared twice", t.TeamName)
		}
		catalog.teams[t.TeamName] = t
	}
	return catalog, nil
}

// Team returns the seed of the named team
func (c *Catalog) Team(name string) (TeamSeed, error) {
	t, ok := c.teams[name]
	if !ok {
		return TeamSeed{}, fmt.Errorf("%w: %s", ErrUnknownTeam, name)
	}
	return t, nil
}

// TeamNames lists the catalog's teams in alphabetical order
func (c *Catalog) TeamNames() []string {
	names := make([]string, 0, len(c.teams))
	for name := range c.teams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// validate checks the properties the raffle relies on. Member names must be unique
// because a slot records its claimant by name.
func (t TeamSeed) validate() error {
	if t.TeamName == "" {
		return errors.New("team without teamname")
	}
	if len(t.Members) == 0 {
		return fmt.Errorf("team %q: no members", t.TeamName)
	}

	codes := make(map[string]bool, len(t.Members))
	names := make(map[string]bool, len(t.Members))
	for _, m := range t.Members {
		if m.Code == "" || m.Name == "" {
			return fmt.Errorf("team %q: member needs both code and name", t.TeamName)
		}
		if codes[m.Code] {
			return fmt.Errorf("team %q: duplicate member code %q", t.TeamName, m.Code)
		}
		if names[m.Name] {
			return fmt.Errorf("team %q: duplicate member name %q", t.TeamName, m.Name)
		}
		codes[m.Code] = true
		names[m.Name] = true
	}

	labels := make(map[string]bool, len(t.Options))
	for _, label := range t.Options {
		if label == "" || label == models.AbsentOption {
			return fmt.Errorf("team %q: invalid option label %q", t.TeamName, label)
		}
		if labels[label] {
			return fmt.Errorf("team %q: duplicate option label %q", t.TeamName, label)
		}
		labels[label] = true
	}
	if len(t.Options) < len(t.Members) {
		return fmt.Errorf("team %q: %d options for %d members", t.TeamName, len(t.Options), len(t.Members))
	}

	if len(t.Prizes) != len(t.Members) {
		return fmt.Errorf("team %q: %d prizes for %d members", t.TeamName, len(t.Prizes), len(t.Members))
	}
	for _, p := range t.Prizes {
		if p < 0 {
			return fmt.Errorf("team %q: negative prize %d", t.TeamName, p)
		}
	}
	return nil
}

// InitialTeam is the roster as provisioned: every member present, raffle not open
func (t TeamSeed) InitialTeam() *models.Team {
	members := make([]models.Member, len(t.Members))
	for i, m := range t.Members {
		members[i] = models.Member{Code: m.Code, Name: m.Name, Status: models.MemberStatusPresent}
	}
	return &models.Team{TeamName: t.TeamName, Members: members, IsOpen: false}
}

// InitialSelection is the slot pool as provisioned: every slot unclaimed
func (t TeamSeed) InitialSelection() *models.Selection {
	options := make([]models.Option, len(t.Options))
	for i, label := range t.Options {
		options[i] = models.Option{Label: label}
	}
	return &models.Selection{TeamName: t.TeamName, Options: options}
}

// PrizePool is the team's prize reference data
func (t TeamSeed) PrizePool() *models.Prizes {
	prizes := make([]int64, len(t.Prizes))
	copy(prizes, t.Prizes)
	return &models.Prizes{TeamName: t.TeamName, Prizes: prizes}
}
