package agent

import (
	"strconv"
	"strings"
)

// Answer is the outcome of a research run.
type Answer struct {
	// RunID identifies the run for resume and store lookups.
	RunID string `json:"run_id"`

	// Text is the final answer, normalized by FormatAnswer.
	Text string `json:"text"`

	// Synthesis is the synthesizer's full output, when the research
	// graph produced one.
	Synthesis string `json:"synthesis,omitempty"`

	// Err is a soft failure recorded by the agent (e.g. the ReAct loop
	// hit its iteration cap). The run itself completed.
	Err string `json:"err,omitempty"`

	// Steps is the number of engine steps the run persisted.
	Steps int `json:"steps"`

	// Cost is the estimated LLM spend for the run in USD.
	Cost float64 `json:"cost"`
}

// Prefixes models commonly put in front of the answer value. Checked
// case-insensitively, longest first.
var answerPrefixes = []string{
	"your final answer is",
	"the final answer is",
	"final answer is",
	"your final answer:",
	"final answer:",
	"answer:",
}

// FormatAnswer normalizes a candidate answer to the strict answer format:
// numbers are written plain (no thousands separators, no currency or
// percent units), strings lose leading articles and trailing punctuation,
// and comma-separated lists have the rules applied per element.
//
// Only the first non-empty line of the candidate is considered; answers
// are expected to be a number, a few words, or a comma-separated list.
func FormatAnswer(candidate string) string {
	s := firstLine(candidate)
	s = stripAnswerPrefix(s)
	s = strings.TrimSuffix(strings.TrimSpace(s), ".")
	s = strings.Trim(s, "\"'[] \t")
	if s == "" {
		return ""
	}

	if n, ok := normalizeNumber(s); ok {
		return n
	}

	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		items := make([]string, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if n, ok := normalizeNumber(part); ok {
				items = append(items, n)
			} else {
				items = append(items, normalizeString(part))
			}
		}
		return strings.Join(items, ", ")
	}

	return normalizeString(s)
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}

func stripAnswerPrefix(s string) string {
	lower := strings.ToLower(s)
	for _, prefix := range answerPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(s[len(prefix):])
		}
	}
	return s
}

// normalizeNumber reports whether s is a single numeric value and, if so,
// returns it stripped of thousands separators, currency symbols, and a
// percent suffix.
func normalizeNumber(s string) (string, bool) {
	t := strings.TrimSpace(s)
	t = strings.TrimSuffix(t, "%")
	for _, symbol := range []string{"$", "€", "£"} {
		t = strings.TrimPrefix(t, symbol)
	}
	t = strings.ReplaceAll(t, ",", "")
	t = strings.TrimSuffix(strings.TrimSpace(t), ".")
	if t == "" {
		return "", false
	}
	if _, err := strconv.ParseFloat(t, 64); err != nil {
		return "", false
	}
	return t, true
}

// normalizeString trims punctuation and a leading article from a string
// answer element.
func normalizeString(s string) string {
	t := strings.TrimSpace(s)
	t = strings.TrimSuffix(t, ".")
	lower := strings.ToLower(t)
	for _, article := range []string{"the ", "an ", "a "} {
		if strings.HasPrefix(lower, article) {
			t = t[len(article):]
			break
		}
	}
	return strings.TrimSpace(t)
}
