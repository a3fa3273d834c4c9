// Package heuristics surfaces obvious risks with line-level regex
// rules, without parsing and without a model. Rules run over unified
// diff text and, optionally, plain source snapshots.
package heuristics

import "regexp"

// Rule is one compiled heuristic.
type Rule struct {
	Name           string
	Pattern        *regexp.Regexp
	Severity       string
	Description    string
	Recommendation string
}

// DefaultRules is the built-in rule set, aimed at Python code.
var DefaultRules = []Rule{
	{
		Name:           "eval_exec_usage",
		Pattern:        regexp.MustCompile(`\b(eval|exec)\s*\(`),
		Severity:       "high",
		Description:    "Detected direct use of eval/exec which can execute untrusted input.",
		Recommendation: "Avoid eval/exec. Use safe parsers or explicit dispatch tables instead.",
	},
	{
		Name:           "pickle_untrusted",
		Pattern:        regexp.MustCompile(`\b(pickle\.loads|pickle\.load)\s*\(`),
		Severity:       "high",
		Description:    "Unpickling arbitrary data can lead to remote code execution.",
		Recommendation: "Only unpickle trusted sources or migrate to safe serialization formats (json, pydantic).",
	},
	{
		Name:           "yaml_unsafe_load",
		Pattern:        regexp.MustCompile(`\byaml\.load\s*\(`),
		Severity:       "high",
		Description:    "yaml.load without SafeLoader may execute arbitrary objects.",
		Recommendation: "Use yaml.safe_load or specify SafeLoader/CSafeLoader explicitly.",
	},
	{
		Name:           "subprocess_shell_true",
		Pattern:        regexp.MustCompile(`\bsubprocess\.(run|popen|Popen)\s*\([^)]*shell\s*=\s*True`),
		Severity:       "high",
		Description:    "Subprocess executed with shell=True may enable command injection.",
		Recommendation: "Avoid shell=True, pass arguments as a list and validate user-controlled data.",
	},
	{
		Name:           "weak_hash",
		Pattern:        regexp.MustCompile(`\bhashlib\.(md5|sha1)\s*\(`),
		Severity:       "medium",
		Description:    "MD5/SHA1 are weak for security-sensitive hashing.",
		Recommendation: "Use SHA-256 or stronger algorithms (hashlib.sha256/sha512 or blake2).",
	},
	{
		Name:           "requests_insecure_verify",
		Pattern:        regexp.MustCompile(`\brequests\.(get|post|put|delete|request)\s*\([^)]*verify\s*=\s*False`),
		Severity:       "medium",
		Description:    "TLS verification disabled for HTTP requests.",
		Recommendation: "Remove verify=False or provide certificate pinning/truststore overrides.",
	},
	{
		Name:           "jwt_disable_verification",
		Pattern:        regexp.MustCompile(`\bjwt\.decode\s*\([^)]*verify\s*=\s*False`),
		Severity:       "high",
		Description:    "JWT verification disabled, allowing token forgery.",
		Recommendation: "Always verify JWT signatures and audiences.",
	},
	{
		Name:           "hardcoded_secret",
		Pattern:        regexp.MustCompile(`(API_KEY|SECRET|TOKEN|PASSWORD)\s*=\s*['"][^'"]+['"]`),
		Severity:       "medium",
		Description:    "Potential hard-coded credential found.",
		Recommendation: "Move secrets to environment variables or secret managers.",
	},
	{
		Name:           "tempfile_mktemp",
		Pattern:        regexp.MustCompile(`\btempfile\.mktemp\s*\(`),
		Severity:       "medium",
		Description:    "tempfile.mktemp is insecure due to race conditions.",
		Recommendation: "Use tempfile.NamedTemporaryFile or mkstemp instead.",
	},
}
