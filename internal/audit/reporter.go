package audit

import (
	"github.com/keysafehq/keysafe/internal/keychain"
)

// Reporter bridges the keychain Manager's failure callback into the audit
// log. Logging is best-effort — a failure to log never blocks the caller.
func Reporter(l *Logger) keychain.ReportFunc {
	return func(op keychain.AccessType, err error) {
		action := ActionAccessFailure
		if op == keychain.AccessFlush {
			action = ActionFlushRetry
		}
		l.Log(Entry{
			Action: action,
			Op:     string(op),
			Error:  err.Error(),
		})
	}
}
