package fix

import "github.com/ppiankov/codespectre/internal/cwe"

// Fixes maps a weakness category and language to ordered remediation
// advice. The "default" language applies to any language without its own row.
var Fixes = map[string]map[string][]string{
	cwe.CodeInjection: {
		"python": {
			"Replace eval() with ast.literal_eval() for safe evaluation",
			"Use json.loads() for JSON parsing",
			"Implement proper input validation and sanitization",
		},
		"javascript": jsEval,
		"typescript": jsEval,
		"java": {
			"Pass arguments as a list to ProcessBuilder instead of a shell string",
			"Validate commands against an allowlist before execution",
			"Implement proper input validation and sanitization",
		},
	},
	cwe.SQLInjection: {
		"python": {
			"Use parameterized queries with placeholders",
			"Use ORM libraries like SQLAlchemy",
			"Implement proper input validation and sanitization",
		},
		"javascript": {
			"Use parameterized queries with placeholders",
			"Use ORM libraries like Sequelize",
			"Implement proper input validation and sanitization",
		},
		"java": {
			"Use PreparedStatement instead of raw SQL",
			"Use JPA/Hibernate for database operations",
			"Implement proper input validation and sanitization",
		},
	},
	cwe.CrossSiteScripting: {
		"javascript": jsXSS,
		"typescript": jsXSS,
		"html": {
			"Use proper HTML encoding",
			"Avoid inline event handlers",
			"Use Content Security Policy (CSP)",
		},
	},
	cwe.BufferOverflow: {
		"c":   boundedCopy,
		"cpp": boundedCopy,
	},
	cwe.HardcodedSecret: {
		"default": {
			"Use environment variables for sensitive data",
			"Use secure configuration management",
			"Implement proper secrets management",
		},
	},
	cwe.InsecureDeserialization: {
		"python": {
			"Use json.loads() instead of pickle.loads()",
			"Implement custom deserialization with validation",
			"Use safe serialization libraries",
		},
		"java": {
			"Use JSON libraries like Jackson or Gson",
			"Implement custom deserialization with validation",
			"Use safe serialization libraries",
		},
	},
}

var (
	jsEval = []string{
		"Replace eval() with JSON.parse() for JSON parsing",
		"Use Function constructor with proper validation",
		"Implement proper input validation and sanitization",
	}
	jsXSS = []string{
		"Use textContent instead of innerHTML",
		"Use DOMPurify for HTML sanitization",
		"Implement proper output encoding",
	}
	boundedCopy = []string{
		"Use strncpy() with proper bounds checking",
		"Use strlcpy() if available",
		"Implement proper buffer size validation",
	}
)

// Generic is returned when no category or language row matches.
var Generic = []string{
	"Implement proper input validation",
	"Use secure coding practices",
	"Follow OWASP security guidelines",
}

// lookupFixes returns the advice for a category and language.
func lookupFixes(category, language string) []string {
	byLang, ok := Fixes[category]
	if !ok {
		return Generic
	}

	fixes, ok := byLang[language]
	if !ok {
		fixes, ok = byLang["default"]
		if !ok {
			return Generic
		}
	}
	return fixes
}
