package recommendation

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// AnalyzeRoleNeeds scores every role archetype against the assessment and returns them
// sorted by priority (critical first), then by descending match score.
func (e *Engine) AnalyzeRoleNeeds(data AssessmentData) ([]TeamMember, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	return e.analyzeRoleNeeds(newScoreResolver(data.SectionScores, e.policy))
}

func (e *Engine) analyzeRoleNeeds(scores *scoreResolver) ([]TeamMember, error) {
	members := make([]TeamMember, 0, len(e.catalog.Roles))
	for _, rule := range e.catalog.Roles {
		member, err := e.evaluateRole(rule, scores)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	sortMembers(members)
	return members, nil
}

func (e *Engine) evaluateRole(rule RoleRule, scores *scoreResolver) (TeamMember, error) {
	sectionScores := make(map[string]float64, len(rule.Gates))
	var assumedNotes []string
	gate := 0.0
	need := 0.0
	for _, g := range rule.Gates {
		score, assumed, err := scores.resolve(g.Section)
		if err != nil {
			return TeamMember{}, fmt.Errorf("role %s: %w", rule.ID, err)
		}
		if assumed {
			assumedNotes = append(assumedNotes, fmt.Sprintf("No %s score was provided; %s%% was assumed", g.Section, formatScore(score)))
		}
		sectionScores[g.Section] = score
		gate += g.Weight * score
		need += g.Weight * (100 - score)
	}

	priority := classify(gate, rule.CriticalBelow, rule.RecommendedBelow)

	reasoning := make([]string, 0, len(rule.Reasons)+len(assumedNotes))
	for _, reason := range rule.Reasons {
		score, ok := sectionScores[reason.Section]
		if !ok {
			resolved, _, err := scores.resolve(reason.Section)
			if err != nil {
				continue
			}
			score = resolved
		}
		if score >= reason.Below {
			continue
		}
		text := strings.TrimSpace(strings.ReplaceAll(reason.Text, "{score}", formatScore(score)))
		if text != "" {
			reasoning = append(reasoning, text)
		}
	}
	if len(reasoning) == 0 && strings.TrimSpace(rule.FallbackReason) != "" {
		reasoning = append(reasoning, strings.TrimSpace(rule.FallbackReason))
	}
	reasoning = append(reasoning, assumedNotes...)

	var combined []string
	if len(rule.CanBeCombinedWith) > 0 {
		combined = append([]string(nil), rule.CanBeCombinedWith...)
	}

	return TeamMember{
		RoleID:            rule.ID,
		RoleName:          rule.Name,
		MatchScore:        clampScore(math.Round(need)),
		Priority:          priority,
		FTE:               rule.FTE.For(priority),
		Timeframe:         e.catalog.Timeframes.For(priority),
		Reasoning:         reasoning,
		CanBeCombinedWith: combined,
	}, nil
}

// classify maps a gating score onto the two-threshold priority cascade.
func classify(gate, criticalBelow, recommendedBelow float64) Priority {
	switch {
	case gate < criticalBelow:
		return PriorityCritical
	case gate < recommendedBelow:
		return PriorityRecommended
	default:
		return PriorityOptional
	}
}

func sortMembers(members []TeamMember) {
	sort.SliceStable(members, func(i, j int) bool {
		a, b := members[i], members[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		return a.MatchScore > b.MatchScore
	})
}

// partition splits members by priority, preserving order.
func partition(members []TeamMember) (critical, recommended, optional []TeamMember) {
	critical = []TeamMember{}
	recommended = []TeamMember{}
	optional = []TeamMember{}
	for _, m := range members {
		switch m.Priority {
		case PriorityCritical:
			critical = append(critical, m)
		case PriorityRecommended:
			recommended = append(recommended, m)
		default:
			optional = append(optional, m)
		}
	}
	return critical, recommended, optional
}

func clampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func formatScore(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}
