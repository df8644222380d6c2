package engine

import (
	"fmt"
	"sort"
)

// SkillType grades a play by the equity it gives up against the best play.
type SkillType int

const (
	SkillVeryBad  SkillType = iota // blunder, ??
	SkillBad                       // error, ?
	SkillDoubtful                  // ?!
	SkillNone                      // best or close to it
)

var skillNames = [...]struct{ display, abbr, text string }{
	SkillVeryBad:  {"Very Bad", "??", "very_bad"},
	SkillBad:      {"Bad", "?", "bad"},
	SkillDoubtful: {"Doubtful", "?!", "doubtful"},
	SkillNone:     {"None", "", "none"},
}

func (s SkillType) String() string { return skillNames[s].display }

// Abbr returns the annotation mark, empty for SkillNone.
func (s SkillType) Abbr() string { return skillNames[s].abbr }

func (s SkillType) MarshalText() ([]byte, error) {
	return []byte(skillNames[s].text), nil
}

func (s *SkillType) UnmarshalText(text []byte) error {
	for i, n := range skillNames {
		if n.text == string(text) {
			*s = SkillType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown skill %q", text)
}

// SkillThresholds is the minimum equity loss of each SkillType, indexed by
// skill. The values are gnubg's defaults.
var SkillThresholds = [4]float64{0.12, 0.06, 0.03, 0}

// ClassifySkill grades a non-negative equity loss.
func ClassifySkill(equityLoss float64) SkillType {
	for s := SkillVeryBad; s < SkillNone; s++ {
		if equityLoss >= SkillThresholds[s] {
			return s
		}
	}
	return SkillNone
}

// RatingType is a player's level judged by average error per unforced move.
type RatingType int

const (
	RatingUndefined RatingType = iota
	RatingAwful
	RatingBeginner
	RatingCasualPlayer
	RatingIntermediate
	RatingAdvanced
	RatingExpert
	RatingWorldClass
	RatingSupernatural
)

var ratingNames = [...]string{
	"Undefined", "Awful", "Beginner", "Casual Player",
	"Intermediate", "Advanced", "Expert", "World Class", "Supernatural",
}

func (r RatingType) String() string { return ratingNames[r] }

// ratingBounds[i] is the exclusive upper error rate of RatingSupernatural-i.
var ratingBounds = []float64{0.002, 0.005, 0.008, 0.012, 0.018, 0.026, 0.035}

// RatingFor returns the rating of an average error per move.
func RatingFor(errorPerMove float64) RatingType {
	i := sort.Search(len(ratingBounds), func(i int) bool { return errorPerMove < ratingBounds[i] })
	return RatingSupernatural - RatingType(i)
}
