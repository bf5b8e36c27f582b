package inference

import (
	"regexp"
	"strings"

	"github.com/tuannvm/llm-tool-engine/internal/registry"
)

// entityKind names one of the entity categories the complexity heuristic
// and the single-tool ranking score both scan for in a query.
type entityKind string

const (
	entityURL      entityKind = "URL"
	entityFile     entityKind = "FILE"
	entityLocation entityKind = "LOCATION"
	entityTime     entityKind = "TIME"
	entityNumber   entityKind = "NUMBER"
	entityEmail    entityKind = "EMAIL"
)

var entityPatterns = map[entityKind]*regexp.Regexp{
	entityURL:      regexp.MustCompile(`(?i)\b((https?://)?[a-z0-9-]+\.[a-z]{2,}(/\S*)?)\b`),
	entityFile:     regexp.MustCompile(`(?i)\b[\w./-]+\.(txt|json|csv|md|log|yaml|yml|xml)\b`),
	entityLocation: regexp.MustCompile(`(?i)\b(in|at|em|para)\s+([A-Z][\wÀ-ÿ]+(?:[ ,][A-Z][\wÀ-ÿ]+)*)`),
	entityTime:     regexp.MustCompile(`(?i)\b(que horas|what time|timezone|hora|time)\b`),
	entityNumber:   regexp.MustCompile(`\b\d+(\.\d+)?\b`),
	entityEmail:    regexp.MustCompile(`(?i)\b[\w.+-]+@[\w-]+\.[a-z]{2,}\b`),
}

// detectEntities returns the set of entity kinds found in the query.
func detectEntities(query string) map[entityKind]bool {
	found := map[entityKind]bool{}
	for kind, re := range entityPatterns {
		if re.MatchString(query) {
			found[kind] = true
		}
	}
	return found
}

// domainForTool maps a fully-qualified tool name to a coarse domain label,
// used both for the "multiple domains" complexity check and for the
// query/description overlap scoring term.
func domainForTool(fullName string) string {
	lower := strings.ToLower(fullName)
	switch {
	case strings.Contains(lower, "file") || strings.Contains(lower, "write") || strings.Contains(lower, "filesystem"):
		return "file"
	case strings.Contains(lower, "weather") || strings.Contains(lower, "forecast"):
		return "weather"
	case strings.Contains(lower, "time") || strings.Contains(lower, "datetime"):
		return "time"
	case strings.Contains(lower, "feed") || strings.Contains(lower, "rss"):
		return "feed"
	default:
		return "other"
	}
}

// isComplexQuery implements the complexity heuristic: more than one entity
// kind, or tools spanning more than one domain are plausibly relevant.
func isComplexQuery(query string, tools []registry.RawTool) bool {
	entities := detectEntities(query)
	if len(entities) > 1 {
		return true
	}
	domains := map[string]bool{}
	lowerQuery := strings.ToLower(query)
	for _, t := range tools {
		d := domainForTool(t.FullName)
		if strings.Contains(lowerQuery, d) {
			domains[d] = true
		}
	}
	return len(domains) > 1
}

// scoredTool is one candidate in the single-tool ranking pass.
type scoredTool struct {
	tool  registry.RawTool
	score float64
}

// rankTools scores each tool by a weighted compatibility heuristic:
// entity/parameter-name overlap (40%), query/description/domain overlap
// (30%), action-verb overlap (20%), and historical success rate (10%).
func rankTools(query string, tools []registry.RawTool, learning *learningRegister) []scoredTool {
	entities := detectEntities(query)
	lowerQuery := strings.ToLower(query)
	verbs := detectActionVerbs(lowerQuery)

	scored := make([]scoredTool, 0, len(tools))
	for _, t := range tools {
		entityScore := entityParamOverlap(entities, t)
		descScore := descriptionOverlap(lowerQuery, t)
		verbScore := verbOverlap(verbs, t)
		rateScore := learning.rate(t.FullName)

		total := entityScore*0.4 + descScore*0.3 + verbScore*0.2 + rateScore*0.1
		scored = append(scored, scoredTool{tool: t, score: total})
	}
	return scored
}

func entityParamOverlap(entities map[entityKind]bool, t registry.RawTool) float64 {
	if len(entities) == 0 {
		return 0
	}
	props, _ := t.Schema["properties"].(map[string]interface{})
	if len(props) == 0 {
		return 0
	}
	hits := 0
	for name := range props {
		lowerName := strings.ToLower(name)
		if entities[entityURL] && strings.Contains(lowerName, "url") {
			hits++
		}
		if entities[entityFile] && (strings.Contains(lowerName, "path") || strings.Contains(lowerName, "file")) {
			hits++
		}
		if entities[entityLocation] && (strings.Contains(lowerName, "location") || strings.Contains(lowerName, "latitude") || strings.Contains(lowerName, "timezone")) {
			hits++
		}
		if entities[entityTime] && strings.Contains(lowerName, "time") {
			hits++
		}
		if entities[entityNumber] && (strings.Contains(lowerName, "latitude") || strings.Contains(lowerName, "longitude") || strings.Contains(lowerName, "number")) {
			hits++
		}
		if entities[entityEmail] && strings.Contains(lowerName, "email") {
			hits++
		}
	}
	if hits == 0 {
		return 0
	}
	return min1(float64(hits) / float64(len(entities)))
}

func descriptionOverlap(lowerQuery string, t registry.RawTool) float64 {
	desc := strings.ToLower(t.Description)
	words := strings.Fields(desc)
	if len(words) == 0 {
		return 0
	}
	hits := 0
	for _, w := range words {
		if len(w) > 3 && strings.Contains(lowerQuery, w) {
			hits++
		}
	}
	if strings.Contains(lowerQuery, domainForTool(t.FullName)) {
		hits++
	}
	return min1(float64(hits) / 3.0)
}

var actionVerbs = []string{"get", "fetch", "create", "write", "save", "read", "list", "search", "send", "show", "crie", "mostre", "busque", "salve"}

func detectActionVerbs(lowerQuery string) []string {
	var found []string
	for _, v := range actionVerbs {
		if strings.Contains(lowerQuery, v) {
			found = append(found, v)
		}
	}
	return found
}

func verbOverlap(verbs []string, t registry.RawTool) float64 {
	if len(verbs) == 0 {
		return 0
	}
	lowerName := strings.ToLower(t.FullName)
	hits := 0
	for _, v := range verbs {
		if strings.Contains(lowerName, v) {
			hits++
		}
	}
	return min1(float64(hits) / float64(len(verbs)))
}

func min1(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	return v
}

// singleToolMatchThreshold is the acceptance threshold for the top-ranked
// tool in the quick single-tool matching pass.
const singleToolMatchThreshold = 0.5

// bestSingleTool returns the top-ranked tool if its score clears the
// threshold, or false otherwise.
func bestSingleTool(query string, tools []registry.RawTool, learning *learningRegister) (registry.RawTool, bool) {
	scored := rankTools(query, tools, learning)
	var best scoredTool
	found := false
	for _, s := range scored {
		if !found || s.score > best.score {
			best = s
			found = true
		}
	}
	if found && best.score >= singleToolMatchThreshold {
		return best.tool, true
	}
	return registry.RawTool{}, false
}
