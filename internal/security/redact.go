package security

import "regexp"

// SecretRedactor strips credential-looking substrings from tool output before
// it is appended to model-facing history or the progress stream.
type SecretRedactor struct {
	patterns []*regexp.Regexp
}

// NewSecretRedactor returns a redactor covering common token formats: bearer
// headers, GitHub tokens, generic key=value assignments, and tokens embedded
// in remote URLs.
func NewSecretRedactor() *SecretRedactor {
	return &SecretRedactor{
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9\-._~+/]{16,}`),
			regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{20,}`),
			regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password)(["']?\s*[:=]\s*["']?)[A-Za-z0-9\-._~+/]{8,}`),
			regexp.MustCompile(`(https?://)[^/\s:@]+:[^/\s@]+@`),
			regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
		},
	}
}

// Redact replaces matched secrets with a placeholder.
func (r *SecretRedactor) Redact(s string) string {
	if s == "" {
		return s
	}
	for _, p := range r.patterns {
		s = p.ReplaceAllStringFunc(s, func(m string) string {
			if sub := p.FindStringSubmatch(m); len(sub) > 1 {
				// Keep the leading capture (header name, URL scheme) readable.
				prefix := sub[1]
				if len(sub) > 2 {
					prefix += sub[2]
				}
				return prefix + "[REDACTED]"
			}
			return "[REDACTED]"
		})
	}
	return s
}
