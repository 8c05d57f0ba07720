// Package aggregate converts per-question analysis scores into one
// role-weighted interview score. Each hiring role maps to a weight profile
// over competencies; weights are renormalized over the competencies actually
// answered so a missing high-weight competency cannot silently deflate the
// final score.
package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/talentgate/interview-pipeline/internal/models"
)

// roleProfiles are the named weight vectors over competencies.
var roleProfiles = map[string]map[string]float64{
	"technical_core": {
		"troubleshooting":     0.35,
		"technical_reasoning": 0.35,
		"networking_concepts": 0.10,
		"problem_explanation": 0.10,
		"communication":       0.05,
		"customer_handling":   0.05,
		"sales_upselling":     0.00,
	},
	"communication_core": {
		"communication":       0.40,
		"customer_handling":   0.30,
		"problem_explanation": 0.15,
		"technical_reasoning": 0.10,
		"troubleshooting":     0.05,
		"sales_upselling":     0.00,
		"networking_concepts": 0.00,
	},
	"mixed_role": {
		"communication":       0.25,
		"problem_explanation": 0.20,
		"technical_reasoning": 0.20,
		"customer_handling":   0.15,
		"troubleshooting":     0.10,
		"networking_concepts": 0.05,
		"sales_upselling":     0.05,
	},
}

var roleProfileByCode = map[string]string{
	"network_engineer":  "technical_core",
	"customer_service":  "communication_core",
	"virtual_assistant": "mixed_role",
	"general":           "mixed_role",
}

// CompetencyStat accumulates the overall scores of analyzed responses tagged
// with one competency.
type CompetencyStat struct {
	Sum   float64
	Count int
}

// Outcome is the interview-level aggregation result.
type Outcome struct {
	FinalScore         float64
	Raw                models.ScoreMap
	Weighted           models.ScoreMap
	WeightsUsed        models.ScoreMap
	RoleProfile        string
	Explanation        string
	Recommendation     string
	AllTechnicalIssues bool
}

// NormalizeRoleCode canonicalizes a role code for profile lookup.
func NormalizeRoleCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	code = strings.ReplaceAll(code, "-", "_")
	return strings.ReplaceAll(code, " ", "_")
}

// ProfileFor returns the weight profile name for a role code, or "" when the
// role has no profile and scoring falls back to uniform weights.
func ProfileFor(roleCode string) string {
	return roleProfileByCode[NormalizeRoleCode(roleCode)]
}

// PromptContext describes the role's scoring priorities in prose, for
// inclusion in grading prompts.
func PromptContext(roleCode string) string {
	profile := ProfileFor(roleCode)
	weights := roleProfiles[profile]
	if len(weights) == 0 {
		return "The role has no specific competency profile; weigh all competencies evenly."
	}
	return fmt.Sprintf("Role profile %q prioritizes: %s.", profile, coreCompetencies(weights))
}

// weightsFor resolves and normalizes the weight vector over the competencies
// present in this interview. The result always sums to 1.
func weightsFor(roleCode string, competencies []string) map[string]float64 {
	weights := make(map[string]float64, len(competencies))

	base := roleProfiles[ProfileFor(roleCode)]
	total := 0.0
	for _, c := range competencies {
		weights[c] = base[c]
		total += base[c]
	}
	if base == nil || total <= 0 {
		uniform := 1.0 / float64(len(competencies))
		for _, c := range competencies {
			weights[c] = uniform
		}
		return weights
	}
	for c, w := range weights {
		weights[c] = w / total
	}
	return weights
}

// Aggregate computes the final weighted score for one interview. An empty
// stats map means every response was a technical issue: the score is 0 and
// the outcome is flagged instead of carrying a normal recommendation.
func Aggregate(stats map[string]CompetencyStat, roleCode string) Outcome {
	profile := ProfileFor(roleCode)

	var competencies []string
	for c, stat := range stats {
		if stat.Count > 0 {
			competencies = append(competencies, c)
		}
	}
	sort.Strings(competencies)

	if len(competencies) == 0 {
		return Outcome{
			RoleProfile:        profile,
			Recommendation:     models.RecommendationTechnicalIssue,
			AllTechnicalIssues: true,
			Raw:                models.ScoreMap{},
			Weighted:           models.ScoreMap{},
			WeightsUsed:        models.ScoreMap{},
		}
	}

	weights := weightsFor(roleCode, competencies)

	raw := make(models.ScoreMap, len(competencies))
	weighted := make(models.ScoreMap, len(competencies))
	used := make(models.ScoreMap, len(competencies))
	totalWeighted := 0.0
	totalWeight := 0.0

	for _, c := range competencies {
		stat := stats[c]
		average := stat.Sum / float64(stat.Count)
		weight := weights[c]

		raw[c] = average
		weighted[c] = average * weight
		used[c] = weight
		totalWeighted += average * weight
		totalWeight += weight
	}

	final := 0.0
	if totalWeight > 0 {
		final = totalWeighted / totalWeight
	}

	return Outcome{
		FinalScore:     final,
		Raw:            raw,
		Weighted:       weighted,
		WeightsUsed:    used,
		RoleProfile:    profile,
		Explanation:    explanation(raw, used, profile),
		Recommendation: recommend(final),
	}
}

func recommend(final float64) string {
	switch {
	case final >= 70:
		return models.RecommendationPass
	case final >= 50:
		return models.RecommendationReview
	default:
		return models.RecommendationFail
	}
}

// explanation names the strongest and weakest competency by raw average.
// Ties break alphabetically so re-runs produce identical text.
func explanation(raw, weights models.ScoreMap, profile string) string {
	competencies := make([]string, 0, len(raw))
	for c := range raw {
		competencies = append(competencies, c)
	}
	sort.Strings(competencies)

	strongest, weakest := competencies[0], competencies[0]
	for _, c := range competencies[1:] {
		if raw[c] > raw[strongest] {
			strongest = c
		}
		if raw[c] < raw[weakest] {
			weakest = c
		}
	}

	label := profile
	if label == "" {
		label = "balanced"
	}
	priorities := coreCompetencies(weights)
	if priorities == "" {
		priorities = "all competencies"
	}
	return fmt.Sprintf("Role profile '%s' prioritizes %s. Strongest area: %s (%.1f). Weakest area: %s (%.1f).",
		label, priorities, strongest, raw[strongest], weakest, raw[weakest])
}

// coreCompetencies lists positively weighted competencies, heaviest first.
func coreCompetencies(weights map[string]float64) string {
	type entry struct {
		name   string
		weight float64
	}
	entries := make([]entry, 0, len(weights))
	for c, w := range weights {
		if w > 0 {
			entries = append(entries, entry{c, w})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].weight != entries[j].weight {
			return entries[i].weight > entries[j].weight
		}
		return entries[i].name < entries[j].name
	})
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return strings.Join(names, ", ")
}
