package statement

import "strings"

// Profile describes the layout of a statement source family.
type Profile struct {
	Name      string
	Delimiter rune
	DateOrder DateOrder
	// Column positions of the fields the parser reads.
	DateColumn        int
	DescriptionColumn int
	AmountColumn      int
	// AbsoluteAmounts is set for sources that report every amount as a
	// positive magnitude; signs in those files are not meaningful.
	AbsoluteAmounts bool
}

// minColumns is the number of fields a row needs for this profile.
func (p Profile) minColumns() int {
	return max(p.DateColumn, p.DescriptionColumn, p.AmountColumn) + 1
}

// DefaultProfile is the three-column "date, description, amount" layout
// shared by every supported source.
var DefaultProfile = Profile{
	Name:              "default",
	Delimiter:         ',',
	DateOrder:         DayFirst,
	DateColumn:        0,
	DescriptionColumn: 1,
	AmountColumn:      2,
	AbsoluteAmounts:   true,
}

// monthFirstSources lists issuers whose exports write dates as MM/DD/YYYY.
var monthFirstSources = []string{
	"chase",
	"amex",
	"american express",
	"citi",
	"capital one",
	"discover",
	"wells fargo",
	"bank of america",
}

// ProfileFor returns the layout for a free-text source label. The label only
// pins the date convention today; every source shares the column layout.
func ProfileFor(source string) Profile {
	p := DefaultProfile
	label := strings.ToLower(strings.TrimSpace(source))
	if label == "" {
		return p
	}
	p.Name = label

	for _, s := range monthFirstSources {
		if strings.Contains(label, s) {
			p.DateOrder = MonthFirst
			break
		}
	}

	return p
}
