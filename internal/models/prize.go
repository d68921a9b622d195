package models

// Prizes is the prize pool reference data of a team, stored under prizes/<teamname>.
// Amounts are whole currency units.
type Prizes struct {
	TeamName string  `bson:"teamname" json:"teamname"`
	Prizes   []int64 `bson:"prizes" json:"prizes"`
}
