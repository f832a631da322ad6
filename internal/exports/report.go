package exports

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"compliance-backend/internal/assessments"
	"compliance-backend/internal/recommendation"
)

// Report is the rendered, presentation-ready form of an assessment.
type Report struct {
	Title       string     `json:"title"`
	Subtitle    string     `json:"subtitle"`
	GeneratedAt time.Time  `json:"generatedAt"`
	Metadata    []KeyValue `json:"metadata"`
	Summary     []KeyValue `json:"summary"`
	Tables      []Table    `json:"tables"`
	Guidance    string     `json:"guidance"`
	Assumptions []string   `json:"assumptions"`
}

type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Table struct {
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

const (
	TableRoles = "Role Recommendations"
	TableTeam  = "Team Composition"
	TableTasks = "Functional Tasks"
	TableGaps  = "Skill Gaps"
)

// BuildReport lays out an assessment in a fixed section order.
func BuildReport(a assessments.Assessment, generatedAt time.Time) Report {
	rec := a.Recommendation
	est := rec.ResourceEstimates

	report := Report{
		Title:       "Privacy Program Staffing Recommendations",
		Subtitle:    titleCase(string(a.OrganizationSize)) + " organization, overall maturity " + pct(a.OverallScore),
		GeneratedAt: generatedAt.UTC(),
		Metadata: []KeyValue{
			{Key: "Assessment ID", Value: a.ID},
			{Key: "Organization", Value: a.OrgID},
			{Key: "Assessed", Value: a.CreatedAt.UTC().Format("2006-01-02")},
			{Key: "Catalog Version", Value: a.EngineVersion},
		},
		Summary: []KeyValue{
			{Key: "Critical Roles", Value: strconv.Itoa(len(rec.CriticalRoles))},
			{Key: "Recommended Roles", Value: strconv.Itoa(len(rec.RecommendedRoles))},
			{Key: "Minimum Headcount", Value: fte(est.MinimumHeadcount)},
			{Key: "Optimal Headcount", Value: fte(est.OptimalHeadcount)},
			{Key: "Estimated Budget", Value: est.EstimatedBudgetRange},
			{Key: "Hiring Priority", Value: joinOrNone(est.HiringPriority)},
		},
		Guidance:    rec.TeamStructureGuidance,
		Assumptions: append([]string{}, rec.Assumptions...),
	}

	roles := Table{Title: TableRoles, Columns: []string{"Role", "Priority", "Match", "FTE", "Timeframe", "Reasoning"}, Rows: [][]string{}}
	for _, group := range [][]recommendation.TeamMember{rec.CriticalRoles, rec.RecommendedRoles, rec.OptionalRoles} {
		for _, m := range group {
			roles.Rows = append(roles.Rows, []string{
				m.RoleName, titleCase(string(m.Priority)), pct(m.MatchScore), m.FTE.String(), m.Timeframe, strings.Join(m.Reasoning, " "),
			})
		}
	}

	team := Table{Title: TableTeam, Columns: []string{"Team", "Role", "FTE"}, Rows: [][]string{}}
	for _, m := range rec.MinimalTeam {
		team.Rows = append(team.Rows, []string{"Minimal", m.RoleName, m.FTE.String()})
	}
	for _, m := range rec.OptimalTeam {
		team.Rows = append(team.Rows, []string{"Optimal", m.RoleName, m.FTE.String()})
	}

	tasks := Table{Title: TableTasks, Columns: []string{"Task", "Owner", "Contributors", "Priority", "Sections"}, Rows: [][]string{}}
	for _, task := range rec.FunctionalTasks {
		tasks.Rows = append(tasks.Rows, []string{
			task.TaskName, task.PrimaryOwner, joinOrNone(task.Contributors), titleCase(string(task.Priority)), joinOrNone(task.RelatedSections),
		})
	}

	gaps := Table{Title: TableGaps, Columns: []string{"Skill Gap"}, Rows: [][]string{}}
	for _, g := range est.SkillGapsToAddress {
		gaps.Rows = append(gaps.Rows, []string{g})
	}

	report.Tables = []Table{roles, team, tasks, gaps}
	return report
}

func pct(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}

func fte(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + " FTE"
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}

// Casers are stateful, so one is built per call.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}
