package models

// ClaimRequest is the body of a slot claim
type ClaimRequest struct {
	Code   string `json:"code" binding:"required"`
	Option string `json:"option" binding:"required"`
}

// MemberView is what a member sees after entering their code
type MemberView struct {
	TeamName  string   `json:"teamname"`
	Name      string   `json:"name"`
	IsOpen    bool     `json:"isOpen"`
	Available []Option `json:"available"`
	Chosen    string   `json:"chosen,omitempty"`
}

// ResultView is a raffle result with the prize formatted for display
type ResultView struct {
	Name         string `json:"name"`
	Option       string `json:"option"`
	Prize        int64  `json:"prize"`
	PrizeDisplay string `json:"prizeDisplay"`
}

// Board is the facilitator read model of one team
type Board struct {
	TeamName        string       `json:"teamname"`
	IsOpen          bool         `json:"isOpen"`
	Members         []Member     `json:"members"`
	Pending         []Member     `json:"pending"`
	Options         []Option     `json:"options"`
	AbsentCount     int          `json:"absentCount"`
	ClaimedCount    int          `json:"claimedCount"`
	AllocationReady bool         `json:"allocationReady"`
	Concluded       bool         `json:"concluded"`
	Results         []ResultView `json:"results"`
}
