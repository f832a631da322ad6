package recommendation

import (
	_ "embed"
	"fmt"
	"math"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Catalog is the declarative rule table driving the engine.
type Catalog struct {
	Version       string        `yaml:"version"`
	AverageSalary int           `yaml:"averageSalary"`
	SkillGapBelow float64       `yaml:"skillGapBelow"`
	Sections      []SectionRule `yaml:"sections"`
	Timeframes    TierStrings   `yaml:"timeframes"`
	Roles         []RoleRule    `yaml:"roles"`
	Tasks         []TaskRule    `yaml:"tasks"`
	Guidance      []Band        `yaml:"guidance"`
}

// SectionRule names an assessment section and the skill gap it maps to.
type SectionRule struct {
	Key   string `yaml:"key"`
	Skill string `yaml:"skill"`
}

// TierStrings holds one label per role priority.
type TierStrings struct {
	Critical    string `yaml:"critical"`
	Recommended string `yaml:"recommended"`
	Optional    string `yaml:"optional"`
}

func (t TierStrings) For(p Priority) string {
	switch p {
	case PriorityCritical:
		return t.Critical
	case PriorityRecommended:
		return t.Recommended
	default:
		return t.Optional
	}
}

// TierFTE holds one staffing range per role priority.
type TierFTE struct {
	Critical    FTERange `yaml:"critical"`
	Recommended FTERange `yaml:"recommended"`
	Optional    FTERange `yaml:"optional"`
}

func (t TierFTE) For(p Priority) FTERange {
	switch p {
	case PriorityCritical:
		return t.Critical
	case PriorityRecommended:
		return t.Recommended
	default:
		return t.Optional
	}
}

// Gate is a weighted section contributing to a role's need.
type Gate struct {
	Section string  `yaml:"section"`
	Weight  float64 `yaml:"weight"`
}

// ReasonRule emits Text when Section scores below Below. "{score}" is interpolated.
type ReasonRule struct {
	Section string  `yaml:"section"`
	Below   float64 `yaml:"below"`
	Text    string  `yaml:"text"`
}

// RoleRule describes one role archetype.
type RoleRule struct {
	ID                string       `yaml:"id"`
	Name              string       `yaml:"name"`
	Gates             []Gate       `yaml:"gates"`
	CriticalBelow     float64      `yaml:"criticalBelow"`
	RecommendedBelow  float64      `yaml:"recommendedBelow"`
	FTE               TierFTE      `yaml:"fte"`
	Reasons           []ReasonRule `yaml:"reasons"`
	FallbackReason    string       `yaml:"fallbackReason"`
	CanBeCombinedWith []string     `yaml:"canBeCombinedWith"`
}

// TaskRule describes one functional task. Always tasks are emitted unconditionally.
type TaskRule struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Owner        string   `yaml:"owner"`
	Contributors []string `yaml:"contributors"`
	Gates        []string `yaml:"gates"`
	Below        float64  `yaml:"below"`
	HighBelow    float64  `yaml:"highBelow"`
	Always       bool     `yaml:"always"`
}

// Band maps an overall score ceiling to guidance text. Below == 0 is the catch-all.
type Band struct {
	Below float64 `yaml:"below"`
	Text  string  `yaml:"text"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// DefaultCatalog returns the embedded catalog, parsed once.
func DefaultCatalog() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = LoadCatalog(defaultCatalogYAML)
	})
	return defaultCatalog, defaultErr
}

// LoadCatalog parses and validates a YAML catalog.
func LoadCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrInvalidCatalog, err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if c.AverageSalary <= 0 {
		return fmt.Errorf("%w: averageSalary must be positive", ErrInvalidCatalog)
	}
	if len(c.Roles) == 0 {
		return fmt.Errorf("%w: at least one role is required", ErrInvalidCatalog)
	}
	ids := make(map[string]bool, len(c.Roles))
	for i, r := range c.Roles {
		if strings.TrimSpace(r.ID) == "" || strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("%w: roles[%d] needs id and name", ErrInvalidCatalog, i)
		}
		if ids[r.ID] {
			return fmt.Errorf("%w: duplicate role id %q", ErrInvalidCatalog, r.ID)
		}
		ids[r.ID] = true
		if len(r.Gates) == 0 {
			return fmt.Errorf("%w: role %q has no gates", ErrInvalidCatalog, r.ID)
		}
		total := 0.0
		for _, g := range r.Gates {
			if g.Weight <= 0 {
				return fmt.Errorf("%w: role %q gate %q weight must be positive", ErrInvalidCatalog, r.ID, g.Section)
			}
			total += g.Weight
		}
		if math.Abs(total-1) > 1e-9 {
			return fmt.Errorf("%w: role %q gate weights must total 1, got %.3f", ErrInvalidCatalog, r.ID, total)
		}
		if r.CriticalBelow > r.RecommendedBelow {
			return fmt.Errorf("%w: role %q criticalBelow exceeds recommendedBelow", ErrInvalidCatalog, r.ID)
		}
		for _, p := range []Priority{PriorityCritical, PriorityRecommended, PriorityOptional} {
			fte := r.FTE.For(p)
			if fte.Min < 0 || fte.Max < fte.Min {
				return fmt.Errorf("%w: role %q has invalid %s fte", ErrInvalidCatalog, r.ID, p)
			}
		}
	}
	for _, r := range c.Roles {
		for _, other := range r.CanBeCombinedWith {
			if !ids[other] {
				return fmt.Errorf("%w: role %q combines with unknown role %q", ErrInvalidCatalog, r.ID, other)
			}
		}
	}
	for i, t := range c.Tasks {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("%w: tasks[%d] needs a name", ErrInvalidCatalog, i)
		}
		if !ids[t.Owner] {
			return fmt.Errorf("%w: task %q owner %q is not a role", ErrInvalidCatalog, t.Name, t.Owner)
		}
		for _, contributor := range t.Contributors {
			if !ids[contributor] {
				return fmt.Errorf("%w: task %q contributor %q is not a role", ErrInvalidCatalog, t.Name, contributor)
			}
		}
		if !t.Always && len(t.Gates) == 0 {
			return fmt.Errorf("%w: task %q needs gates or always", ErrInvalidCatalog, t.Name)
		}
	}
	return nil
}

func (c *Catalog) role(id string) (RoleRule, bool) {
	for _, r := range c.Roles {
		if r.ID == id {
			return r, true
		}
	}
	return RoleRule{}, false
}

func (c *Catalog) skillFor(sectionTitle string) string {
	title := strings.ToLower(strings.TrimSpace(sectionTitle))
	for _, s := range c.Sections {
		key := strings.ToLower(s.Key)
		if title == key || strings.Contains(title, key) {
			return s.Skill
		}
	}
	return strings.TrimSpace(sectionTitle) + " capability building"
}

func (c *Catalog) guidanceFor(overall float64) string {
	for _, b := range c.Guidance {
		if b.Below == 0 || overall < b.Below {
			return strings.TrimSpace(b.Text)
		}
	}
	return ""
}
