package llm

import (
	_ "embed"
	"strings"
)

// DefaultRoleContext is used when no target role is given.
const DefaultRoleContext = "software/data/technical internships"

//go:embed prompts/analysis.txt
var analysisTemplate string

// BuildPrompt renders the analysis prompt for resumeText. An empty targetRole
// falls back to DefaultRoleContext.
func BuildPrompt(resumeText, targetRole string) string {
	role := strings.TrimSpace(targetRole)
	roleContext := DefaultRoleContext
	if role != "" {
		roleContext = role + " positions"
	}
	replacer := strings.NewReplacer(
		"{{ROLE_CONTEXT}}", roleContext,
		"{{RESUME_TEXT}}", strings.TrimSpace(resumeText),
	)
	return replacer.Replace(analysisTemplate)
}
