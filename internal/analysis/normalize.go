// Package analysis compares a resume against a job description and turns the
// gap into candidate proposals.
package analysis

import "strings"

// skillNormalizations maps common skill name variants to canonical names
var skillNormalizations = map[string]string{
	"golang":     "Go",
	"go lang":    "Go",
	"javascript": "JavaScript",
	"js":         "JavaScript",
	"typescript": "TypeScript",
	"ts":         "TypeScript",
	"k8s":        "Kubernetes",
	"kubernetes": "Kubernetes",
	"react.js":   "React",
	"reactjs":    "React",
	"vue.js":     "Vue",
	"vuejs":      "Vue",
	"node.js":    "Node.js",
	"nodejs":     "Node.js",
	"postgres":   "PostgreSQL",
	"postgresql": "PostgreSQL",
	"mysql":      "MySQL",
	"mongodb":    "MongoDB",
	"graphql":    "GraphQL",
	"grpc":       "gRPC",
	"aws":        "AWS",
	"gcp":        "GCP",
	"sql":        "SQL",
	"ci/cd":      "CI/CD",
	"docker":     "Docker",
	"terraform":  "Terraform",
	"kafka":      "Kafka",
	"redis":      "Redis",
	"linux":      "Linux",
	"python":     "Python",
	"java":       "Java",
}

// ambiguousSkills are English words that only count as skills when capitalized.
var ambiguousSkills = map[string]bool{
	"go":     true,
	"rust":   true,
	"react":  true,
	"swift":  true,
	"spring": true,
	"ruby":   true,
}

// NormalizeSkillName normalizes a skill name to its canonical form
func NormalizeSkillName(skillName string) string {
	normalized := strings.TrimSpace(skillName)
	if normalized == "" {
		return ""
	}

	lower := strings.ToLower(normalized)
	if canonical, ok := skillNormalizations[lower]; ok {
		return canonical
	}

	// Mixed case is deliberate (GraphQL, macOS); keep it.
	if normalized != strings.ToUpper(normalized) && normalized != strings.ToLower(normalized) {
		return normalized
	}
	// Short all-caps words are acronyms.
	if normalized == strings.ToUpper(normalized) {
		if len(normalized) <= 4 || strings.Contains(normalized, " ") {
			return normalized
		}
		return normalized[:1] + strings.ToLower(normalized[1:])
	}
	if !strings.Contains(normalized, " ") {
		return strings.ToUpper(normalized[:1]) + normalized[1:]
	}
	return normalized
}

// NormalizeKeywords canonicalizes and dedupes keywords, keeping first occurrences.
func NormalizeKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		n := NormalizeSkillName(k)
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}
