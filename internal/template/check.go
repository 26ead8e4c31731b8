package template

import "fmt"

// #region types
// Check is one named validation over a rendered reply.
type Check struct {
	Name string
	Pass bool
}

// CheckResult holds the outcome of reply validation.
type CheckResult struct {
	Passed bool
	Checks []Check
	Reason string
}

// CheckConfig bounds what a rendered reply may look like.
type CheckConfig struct {
	MaxReplyLen int
}

// DefaultCheckConfig returns limits suitable for chat replies.
func DefaultCheckConfig() CheckConfig {
	return CheckConfig{MaxReplyLen: 2000}
}

// #endregion types

// #region validate
// Validate runs lightweight checks on a rendered reply before it is
// accepted as an answer. Returns pass/fail with per-check detail.
func Validate(reply string, cfg CheckConfig) CheckResult {
	var checks []Check
	passed := true
	var failReasons []string

	// 1. Reply must not be empty
	nonEmpty := reply != ""
	checks = append(checks, Check{Name: "non_empty", Pass: nonEmpty})
	if !nonEmpty {
		passed = false
		failReasons = append(failReasons, "reply is empty")
	}

	// 2. No placeholder markers may survive rendering
	unresolved := placeholderRe.FindString(reply)
	noLeftover := unresolved == ""
	checks = append(checks, Check{Name: "no_unresolved_placeholder", Pass: noLeftover})
	if !noLeftover {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("unresolved placeholder %s", unresolved))
	}

	// 3. Reply length bound
	lengthOK := cfg.MaxReplyLen <= 0 || len(reply) <= cfg.MaxReplyLen
	checks = append(checks, Check{Name: "length", Pass: lengthOK})
	if !lengthOK {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("reply length %d exceeds %d", len(reply), cfg.MaxReplyLen))
	}

	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("check failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("check failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return CheckResult{Passed: passed, Checks: checks, Reason: reason}
}

// #endregion validate
