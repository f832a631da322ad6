package recommendation

// EmergencyScore is the overall score below which every non-optional role joins the minimal team.
const EmergencyScore = 50.0

// BuildTeamStructure selects the minimal and optimal teams from sorted role recommendations.
// The minimal team is always a subset of the optimal team.
func BuildTeamStructure(roles []TeamMember, size OrganizationSize, overallScore float64) TeamStructure {
	critical, recommended, optional := partition(roles)

	var minimal, optimal []TeamMember
	switch size {
	case SizeSmall:
		minimal = concat(firstN(critical, 2))
		optimal = concat(critical, firstN(recommended, 1))
	case SizeLarge, SizeEnterprise:
		minimal = concat(critical, firstN(recommended, 1))
		optimal = concat(critical, recommended, optional)
	default:
		minimal = concat(critical)
		optimal = concat(critical, recommended)
	}

	if overallScore < EmergencyScore {
		minimal = concat(critical, recommended)
	}

	for _, m := range minimal {
		if !containsRole(optimal, m.RoleID) {
			optimal = append(optimal, m)
		}
	}

	return TeamStructure{MinimalTeam: minimal, OptimalTeam: optimal}
}

func firstN(members []TeamMember, n int) []TeamMember {
	if len(members) <= n {
		return members
	}
	return members[:n]
}

func concat(groups ...[]TeamMember) []TeamMember {
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	out := make([]TeamMember, 0, total)
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func containsRole(members []TeamMember, roleID string) bool {
	for _, m := range members {
		if m.RoleID == roleID {
			return true
		}
	}
	return false
}
