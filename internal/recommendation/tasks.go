package recommendation

import (
	"fmt"
	"sort"
)

// GenerateFunctionalTasks emits catalog tasks whose gating sections fall below their threshold,
// plus every always-on task, sorted high to medium to low priority.
func (e *Engine) GenerateFunctionalTasks(data AssessmentData, members []TeamMember) ([]FunctionalTask, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	return e.generateFunctionalTasks(data, members, newScoreResolver(data.SectionScores, e.policy))
}

func (e *Engine) generateFunctionalTasks(data AssessmentData, members []TeamMember, scores *scoreResolver) ([]FunctionalTask, error) {
	tasks := make([]FunctionalTask, 0, len(e.catalog.Tasks))
	for _, rule := range e.catalog.Tasks {
		if rule.Always {
			tasks = append(tasks, e.alwaysTask(rule, data.OverallScore, members))
			continue
		}
		lowest := 0.0
		triggered := false
		for i, section := range rule.Gates {
			score, _, err := scores.resolve(section)
			if err != nil {
				return nil, fmt.Errorf("task %s: %w", rule.Name, err)
			}
			if i == 0 || score < lowest {
				lowest = score
			}
			if score < rule.Below {
				triggered = true
			}
		}
		if !triggered {
			continue
		}
		priority := TaskMedium
		if lowest < rule.HighBelow {
			priority = TaskHigh
		}
		tasks = append(tasks, e.buildTask(rule, priority, true, members))
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Priority.rank() < tasks[j].Priority.rank()
	})
	return tasks, nil
}

// alwaysTask derives priority from the overall score: high below HighBelow, medium below Below.
func (e *Engine) alwaysTask(rule TaskRule, overall float64, members []TeamMember) FunctionalTask {
	priority := TaskLow
	switch {
	case overall < rule.HighBelow:
		priority = TaskHigh
	case overall < rule.Below:
		priority = TaskMedium
	}
	return e.buildTask(rule, priority, overall < rule.Below, members)
}

func (e *Engine) buildTask(rule TaskRule, priority TaskPriority, required bool, members []TeamMember) FunctionalTask {
	contributors := make([]string, 0, len(rule.Contributors))
	for _, id := range rule.Contributors {
		if name, ok := memberName(members, id); ok {
			contributors = append(contributors, name)
		}
	}
	owner, ok := memberName(members, rule.Owner)
	if !ok {
		if r, found := e.catalog.role(rule.Owner); found {
			owner = r.Name
		}
	}
	related := append([]string{}, rule.Gates...)
	return FunctionalTask{
		TaskName:        rule.Name,
		Description:     rule.Description,
		PrimaryOwner:    owner,
		Contributors:    contributors,
		Priority:        priority,
		RequiredForGaps: required,
		RelatedSections: related,
	}
}

func memberName(members []TeamMember, roleID string) (string, bool) {
	for _, m := range members {
		if m.RoleID == roleID {
			return m.RoleName, true
		}
	}
	return "", false
}
