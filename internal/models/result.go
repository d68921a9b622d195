package models

// AbsentOption is the option label recorded for members who were absent at allocation
const AbsentOption = "-"

// RaffleResult is a single prize allocation
type RaffleResult struct {
	Name   string `bson:"name" json:"name"`
	Option string `bson:"option" json:"option"`
	Prize  int64  `bson:"prize" json:"prize"`
}

// Results is the allocation outcome of a team, stored under results/<teamname>.
// Its existence marks the raffle cycle as concluded.
type Results struct {
	Results []RaffleResult `bson:"results" json:"results"`
}
