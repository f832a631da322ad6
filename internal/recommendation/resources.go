package recommendation

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CalculateResourceEstimates derives headcount, budget, skill gaps and hiring order.
func (e *Engine) CalculateResourceEstimates(minimal, optimal []TeamMember, data AssessmentData) ResourceEstimates {
	minHeadcount := 0.0
	for _, m := range minimal {
		minHeadcount += m.FTE.Min
	}
	optHeadcount := 0.0
	for _, m := range optimal {
		optHeadcount += m.FTE.Max
	}
	minHeadcount = round2(minHeadcount)
	optHeadcount = round2(optHeadcount)

	budget := BudgetRange{
		Min:      annualCost(minHeadcount, e.catalog.AverageSalary),
		Max:      annualCost(optHeadcount, e.catalog.AverageSalary),
		Currency: "USD",
	}

	gaps := []string{}
	for _, s := range data.SectionScores {
		if s.Percentage < e.catalog.SkillGapBelow {
			gaps = append(gaps, e.catalog.skillFor(s.Title)+" ("+s.Title+": "+formatScore(s.Percentage)+"%)")
		}
	}

	hiring := []string{}
	for _, m := range minimal {
		if m.Priority == PriorityCritical {
			hiring = append(hiring, m.RoleName)
		}
	}

	return ResourceEstimates{
		MinimumHeadcount:     minHeadcount,
		OptimalHeadcount:     optHeadcount,
		EstimatedBudgetRange: FormatBudget(budget),
		Budget:               budget,
		SkillGapsToAddress:   gaps,
		HiringPriority:       hiring,
	}
}

// annualCost rounds headcount × salary to the nearest thousand.
func annualCost(headcount float64, salary int) int {
	return int(math.Round(headcount*float64(salary)/1000)) * 1000
}

var currencyPrinter = message.NewPrinter(language.English)

// FormatBudget renders a budget as "$60,000 - $240,000/year".
func FormatBudget(b BudgetRange) string {
	return currencyPrinter.Sprintf("$%d - $%d/year", b.Min, b.Max)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
