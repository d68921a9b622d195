package models

// MemberStatus represents whether a member is taking part in the raffle in person
type MemberStatus string

const (
	MemberStatusPresent MemberStatus = "present"
	MemberStatusAbsent  MemberStatus = "absent"
)

// Flip returns the opposite presence status
func (s MemberStatus) Flip() MemberStatus {
	if s == MemberStatusAbsent {
		return MemberStatusPresent
	}
	return MemberStatusAbsent
}

// Member is a team member identified by an immutable code
type Member struct {
	Code   string       `bson:"code" json:"code"`
	Name   string       `bson:"name" json:"name"`
	Status MemberStatus `bson:"status" json:"status"`
}

// IsAbsent reports whether the member has been tagged absent by the facilitator
func (m Member) IsAbsent() bool {
	return m.Status == MemberStatusAbsent
}

// Team is the roster record of a team, stored under teams/<teamname>
type Team struct {
	TeamName string   `bson:"teamname" json:"teamname"`
	Members  []Member `bson:"members" json:"members"`
	IsOpen   bool     `bson:"isOpen" json:"isOpen"`
}

// FindMember returns the index of the member with the given code, or -1
func (t *Team) FindMember(code string) int {
	for i, m := range t.Members {
		if m.Code == code {
			return i
		}
	}
	return -1
}

// MemberName resolves a member code to its display name. Unknown codes resolve to "".
func (t *Team) MemberName(code string) string {
	if i := t.FindMember(code); i >= 0 {
		return t.Members[i].Name
	}
	return ""
}

// AbsentMembers returns the members tagged absent, in roster order
func (t *Team) AbsentMembers() []Member {
	absent := []Member{}
	for _, m := range t.Members {
		if m.IsAbsent() {
			absent = append(absent, m)
		}
	}
	return absent
}
