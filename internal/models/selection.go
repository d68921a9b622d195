package models

// Option is a claimable slot. Value holds the claimant's display name, empty while unclaimed.
type Option struct {
	Label string `bson:"label" json:"label"`
	Value string `bson:"value" json:"value"`
}

// IsClaimed reports whether a member has claimed the option
func (o Option) IsClaimed() bool {
	return o.Value != ""
}

// Selection is the slot pool of a team, stored under selection/<teamname>
type Selection struct {
	TeamName string   `bson:"teamname" json:"teamname"`
	Options  []Option `bson:"options" json:"options"`
}

// FindOption returns the index of the option with the given label, or -1
func (s *Selection) FindOption(label string) int {
	for i, o := range s.Options {
		if o.Label == label {
			return i
		}
	}
	return -1
}

// ClaimedBy returns the option claimed by the named member, if any
func (s *Selection) ClaimedBy(name string) (Option, bool) {
	if name == "" {
		return Option{}, false
	}
	for _, o := range s.Options {
		if o.Value == name {
			return o, true
		}
	}
	return Option{}, false
}

// Available returns the unclaimed options in pool order
func (s *Selection) Available() []Option {
	available := []Option{}
	for _, o := range s.Options {
		if !o.IsClaimed() {
			available = append(available, o)
		}
	}
	return available
}

// Claimed returns the claimed options in pool order
func (s *Selection) Claimed() []Option {
	claimed := []Option{}
	for _, o := range s.Options {
		if o.IsClaimed() {
			claimed = append(claimed, o)
		}
	}
	return claimed
}
