// Package classify maps free-text activity names onto the closed
// ActivityType taxonomy. Classification is pure keyword matching over the
// lower-cased input, evaluated in specificity order: the first matching
// rule wins and unmatched input always falls through to the taxonomy's
// generic default, so classification never fails.
package classify

import (
	"strings"

	"icetime/internal/model"
)

type rule struct {
	match func(s string) bool
	t     model.ActivityType
}

func contains(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func hockeyish(s string) bool {
	return contains(s, "hockey", "shinny", "stick", "puck", "ringette")
}

// skatingRules are ordered most-specific first. Order is load-bearing:
// "Family Stick & Puck" must hit the family+hockey rule before the plain
// hockey rule ever sees it.
var skatingRules = []rule{
	{func(s string) bool { return contains(s, "family") && hockeyish(s) }, model.FamilyHockey},
	{func(s string) bool {
		return contains(s, "shinny") ||
			(contains(s, "drop") && contains(s, "hockey")) ||
			(contains(s, "stick") && contains(s, "puck"))
	}, model.DropInHockey},
	{func(s string) bool { return contains(s, "para") && hockeyish(s) }, model.ParaHockey},
	{hockeyish, model.Hockey},
	{func(s string) bool {
		return contains(s, "parent", "family", "tot") && contains(s, "skate", "skating")
	}, model.FamilySkate},
	{func(s string) bool { return contains(s, "figure") }, model.FigureSkating},
	{func(s string) bool {
		return contains(s, "public", "drop-in", "drop in", "toonie", "loonie", "discount")
	}, model.PublicSkating},
	{func(s string) bool { return contains(s, "adult") && contains(s, "skate", "skating") }, model.PublicSkating},
	{func(s string) bool {
		return contains(s, "lesson", "learn", "class", "canskate", "intro")
	}, model.SkatingLessons},
	{func(s string) bool { return contains(s, "practice", "freestyle") }, model.Practice},
}

// swimRules mirror skatingRules for aquatic programming.
var swimRules = []rule{
	{func(s string) bool {
		return contains(s, "lesson", "learn", "class", "swim kids", "intro")
	}, model.SwimLessons},
	{func(s string) bool { return contains(s, "aquafit", "aqua fit", "aquacise", "aqua fitness") }, model.Aquafit},
	{func(s string) bool { return contains(s, "lap", "length") }, model.LapSwim},
	{func(s string) bool { return contains(s, "family", "parent", "tot") }, model.FamilySwim},
	{func(s string) bool { return contains(s, "adult") }, model.AdultSwim},
}

// Skating classifies an ice-activity name. The generic fallback is
// model.Skating.
func Skating(name string) model.ActivityType {
	return classify(name, skatingRules, model.Skating)
}

// Swimming classifies a pool-activity name. The generic fallback is
// model.PublicSwim.
func Swimming(name string) model.ActivityType {
	return classify(name, swimRules, model.PublicSwim)
}

func classify(name string, rules []rule, fallback model.ActivityType) model.ActivityType {
	s := strings.ToLower(name)
	for _, r := range rules {
		if r.match(s) {
			return r.t
		}
	}
	return fallback
}

// ShouldSkipSwim reports whether a pool entry is a sauna/whirlpool-only
// listing rather than a real swim session. Entries that also mention swim,
// pool, lap or aqua keywords are kept.
func ShouldSkipSwim(name string) bool {
	s := strings.ToLower(name)
	if !contains(s, "sauna", "whirlpool", "steam room", "hot tub") {
		return false
	}
	// "whirlpool" itself must not satisfy the "pool" keep-keyword.
	stripped := strings.ReplaceAll(s, "whirlpool", "")
	return !contains(stripped, "swim", "pool", "lap", "aqua")
}
