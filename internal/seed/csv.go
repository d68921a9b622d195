package seed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Header aliases accepted by ImportCSV, compared case-insensitively
var (
	codeColumns   = []string{"Code", "Member Code", "Member ID", "ID"}
	nameColumns   = []string{"Name", "Member Name", "Full Name", "Display Name"}
	prizeColumns  = []string{"Prize", "Prize Amount", "Amount"}
	optionColumns = []string{"Option", "Slot", "Label"}
)

// ImportCSV builds a team seed from a roster spreadsheet export. Code, name and prize
// columns are required, one prize per member row. Without an option column the slots
// are labelled 1..n. Prize amounts may carry thousands separators.
func ImportCSV(r io.Reader, teamName string) (TeamSeed, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return TeamSeed{}, fmt.Errorf("failed to read header: %w", err)
	}

	codeIdx := findColumnIndex(header, codeColumns)
	nameIdx := findColumnIndex(header, nameColumns)
	prizeIdx := findColumnIndex(header, prizeColumns)
	optionIdx := findColumnIndex(header, optionColumns)
	switch {
	case codeIdx == -1:
		return TeamSeed{}, errors.New("code column not found in CSV")
	case nameIdx == -1:
		return TeamSeed{}, errors.New("name column not found in CSV")
	case prizeIdx == -1:
		return TeamSeed{}, errors.New("prize column not found in CSV")
	}

	team := TeamSeed{TeamName: teamName}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return TeamSeed{}, fmt.Errorf("line %d: %w", line, err)
		}

		team.Members = append(team.Members, MemberSeed{
			Code: strings.TrimSpace(row[codeIdx]),
			Name: strings.TrimSpace(row[nameIdx]),
		})

		prize, err := parsePrize(row[prizeIdx])
		if err != nil {
			return TeamSeed{}, fmt.Errorf("line %d: invalid prize %q: %w", line, row[prizeIdx], err)
		}
		team.Prizes = append(team.Prizes, prize)

		if optionIdx != -1 {
			if label := strings.TrimSpace(row[optionIdx]); label != "" {
				team.Options = append(team.Options, label)
			}
		}
	}

	if optionIdx == -1 {
		for i := range team.Members {
			team.Options = append(team.Options, strconv.Itoa(i+1))
		}
	}

	if err := team.validate(); err != nil {
		return TeamSeed{}, err
	}
	return team, nil
}

// Put adds or replaces a team seed
func (c *Catalog) Put(t TeamSeed) error {
	if err := t.validate(); err != nil {
		return err
	}
	if c.teams == nil {
		c.teams = make(map[string]TeamSeed)
	}
	c.teams[t.TeamName] = t
	return nil
}

// Marshal encodes the catalog as yaml, teams in alphabetical order
func (c *Catalog) Marshal() ([]byte, error) {
	var file catalogFile
	for _, name := range c.TeamNames() {
		file.Teams = append(file.Teams, c.teams[name])
	}
	return yaml.Marshal(file)
}

func findColumnIndex(header []string, possibleNames []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, name := range possibleNames {
			if strings.ToLower(name) == h {
				return i
			}
		}
	}
	return -1
}

func parsePrize(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	return strconv.ParseInt(s, 10, 64)
}
