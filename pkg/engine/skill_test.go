package engine

import "testing"

func TestClassifySkill(t *testing.T) {
	tests := []struct {
		loss float64
		want SkillType
	}{
		{0, SkillNone},
		{0.029, SkillNone},
		{0.03, SkillDoubtful},
		{0.059, SkillDoubtful},
		{0.06, SkillBad},
		{0.119, SkillBad},
		{0.12, SkillVeryBad},
		{1.5, SkillVeryBad},
	}
	for _, tc := range tests {
		if got := ClassifySkill(tc.loss); got != tc.want {
			t.Errorf("ClassifySkill(%.3f) = %v, want %v", tc.loss, got, tc.want)
		}
	}
}

func TestRatingFor(t *testing.T) {
	tests := []struct {
		epm  float64
		want RatingType
	}{
		{0, RatingSupernatural},
		{0.002, RatingWorldClass},
		{0.006, RatingExpert},
		{0.008, RatingAdvanced},
		{0.015, RatingIntermediate},
		{0.025, RatingCasualPlayer},
		{0.034, RatingBeginner},
		{0.035, RatingAwful},
		{0.2, RatingAwful},
	}
	for _, tc := range tests {
		if got := RatingFor(tc.epm); got != tc.want {
			t.Errorf("RatingFor(%.3f) = %v, want %v", tc.epm, got, tc.want)
		}
	}
}

func TestSkillText(t *testing.T) {
	tests := []struct {
		skill         SkillType
		name, abbr, t string
	}{
		{SkillVeryBad, "Very Bad", "??", "very_bad"},
		{SkillBad, "Bad", "?", "bad"},
		{SkillDoubtful, "Doubtful", "?!", "doubtful"},
		{SkillNone, "None", "", "none"},
	}
	for _, tc := range tests {
		if tc.skill.String() != tc.name || tc.skill.Abbr() != tc.abbr {
			t.Errorf("%d: String/Abbr = %q/%q", tc.skill, tc.skill.String(), tc.skill.Abbr())
		}
		text, _ := tc.skill.MarshalText()
		if string(text) != tc.t {
			t.Errorf("MarshalText(%v) = %q, want %q", tc.skill, text, tc.t)
		}
		var back SkillType
		if err := back.UnmarshalText(text); err != nil || back != tc.skill {
			t.Errorf("UnmarshalText(%q) = %v, %v", text, back, err)
		}
	}
	var s SkillType
	if err := s.UnmarshalText([]byte("awful")); err == nil {
		t.Error("UnmarshalText(awful) succeeded")
	}
}
