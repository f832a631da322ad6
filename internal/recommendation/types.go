package recommendation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SectionScore is a named assessment category score.
type SectionScore struct {
	Title      string  `json:"title" validate:"required"`
	Percentage float64 `json:"percentage" validate:"gte=0,lte=100"`
}

// AssessmentData is the immutable engine input produced by the assessment flow.
type AssessmentData struct {
	OverallScore  float64        `json:"overallScore" validate:"gte=0,lte=100"`
	SectionScores []SectionScore `json:"sectionScores" validate:"required,min=1,dive"`
}

// OrganizationSize selects the team composition strategy.
type OrganizationSize string

const (
	SizeSmall      OrganizationSize = "small"
	SizeMedium     OrganizationSize = "medium"
	SizeLarge      OrganizationSize = "large"
	SizeEnterprise OrganizationSize = "enterprise"
)

// ParseOrganizationSize normalizes raw input. Empty input means medium.
func ParseOrganizationSize(raw string) (OrganizationSize, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return SizeMedium, nil
	case "small":
		return SizeSmall, nil
	case "medium":
		return SizeMedium, nil
	case "large":
		return SizeLarge, nil
	case "enterprise":
		return SizeEnterprise, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOrganizationSize, raw)
	}
}

// Priority is the urgency tier of a role.
type Priority string

const (
	PriorityCritical    Priority = "critical"
	PriorityRecommended Priority = "recommended"
	PriorityOptional    Priority = "optional"
)

// Rank orders priorities; lower is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityRecommended:
		return 1
	default:
		return 2
	}
}

// TaskPriority is the urgency of a functional task.
type TaskPriority string

const (
	TaskHigh   TaskPriority = "high"
	TaskMedium TaskPriority = "medium"
	TaskLow    TaskPriority = "low"
)

func (p TaskPriority) rank() int {
	switch p {
	case TaskHigh:
		return 0
	case TaskMedium:
		return 1
	default:
		return 2
	}
}

// FTERange is a staffing commitment in full-time equivalents.
type FTERange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// String renders the range in the display form "0.5-1.0".
func (r FTERange) String() string {
	return strconv.FormatFloat(r.Min, 'f', 1, 64) + "-" + strconv.FormatFloat(r.Max, 'f', 1, 64)
}

// ParseFTERange reads the display form ("0.5-1.0" or a single value "1.0").
func ParseFTERange(raw string) (FTERange, error) {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) == 0 || len(parts) > 2 {
		return FTERange{}, fmt.Errorf("invalid fte range %q", raw)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return FTERange{}, fmt.Errorf("invalid fte range %q: %w", raw, err)
	}
	hi := lo
	if len(parts) == 2 {
		hi, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return FTERange{}, fmt.Errorf("invalid fte range %q: %w", raw, err)
		}
	}
	if lo < 0 || hi < lo {
		return FTERange{}, fmt.Errorf("invalid fte range %q", raw)
	}
	return FTERange{Min: lo, Max: hi}, nil
}

// UnmarshalJSON accepts the object form and the legacy "0.5-1.0" string.
func (r *FTERange) UnmarshalJSON(b []byte) error {
	if trimmed := bytes.TrimSpace(b); len(trimmed) > 0 && trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		parsed, err := ParseFTERange(raw)
		if err != nil {
			return err
		}
		*r = parsed
		return nil
	}
	type plain FTERange
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = FTERange(p)
	return nil
}

// UnmarshalYAML accepts {min, max} mappings and older catalogs that spell
// ranges as "0.5-1.0" scalars.
func (r *FTERange) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		parsed, err := ParseFTERange(node.Value)
		if err != nil {
			return err
		}
		*r = parsed
		return nil
	}
	type plain FTERange
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*r = FTERange(p)
	return nil
}

// TeamMember is a role recommendation.
type TeamMember struct {
	RoleID            string   `json:"roleId"`
	RoleName          string   `json:"roleName"`
	MatchScore        float64  `json:"matchScore"`
	Priority          Priority `json:"priority"`
	FTE               FTERange `json:"fte"`
	Timeframe         string   `json:"timeframe"`
	Reasoning         []string `json:"reasoning"`
	CanBeCombinedWith []string `json:"canBeCombinedWith,omitempty"`
}

// FunctionalTask is a unit of privacy program work assigned to roles.
type FunctionalTask struct {
	TaskName        string       `json:"taskName"`
	Description     string       `json:"description"`
	PrimaryOwner    string       `json:"primaryOwner"`
	Contributors    []string     `json:"contributors"`
	Priority        TaskPriority `json:"priority"`
	RequiredForGaps bool         `json:"requiredForGaps"`
	RelatedSections []string     `json:"relatedSections"`
}

// TeamStructure holds the selected team compositions.
type TeamStructure struct {
	MinimalTeam []TeamMember `json:"minimalTeam"`
	OptimalTeam []TeamMember `json:"optimalTeam"`
}

// BudgetRange is a yearly staffing budget in whole dollars.
type BudgetRange struct {
	Min      int    `json:"min"`
	Max      int    `json:"max"`
	Currency string `json:"currency"`
}

// ResourceEstimates summarizes headcount and budget needs.
type ResourceEstimates struct {
	MinimumHeadcount     float64     `json:"minimumHeadcount"`
	OptimalHeadcount     float64     `json:"optimalHeadcount"`
	EstimatedBudgetRange string      `json:"estimatedBudgetRange"`
	Budget               BudgetRange `json:"budget"`
	SkillGapsToAddress   []string    `json:"skillGapsToAddress"`
	HiringPriority       []string    `json:"hiringPriority"`
}

// OrganizationalRecommendation is the engine output.
type OrganizationalRecommendation struct {
	OrganizationSize      OrganizationSize  `json:"organizationSize"`
	OverallScore          float64           `json:"overallScore"`
	CriticalRoles         []TeamMember      `json:"criticalRoles"`
	RecommendedRoles      []TeamMember      `json:"recommendedRoles"`
	OptionalRoles         []TeamMember      `json:"optionalRoles"`
	MinimalTeam           []TeamMember      `json:"minimalTeam"`
	OptimalTeam           []TeamMember      `json:"optimalTeam"`
	FunctionalTasks       []FunctionalTask  `json:"functionalTasks"`
	ResourceEstimates     ResourceEstimates `json:"resourceEstimates"`
	TeamStructureGuidance string            `json:"teamStructureGuidance"`
	Assumptions           []string          `json:"assumptions"`
}
