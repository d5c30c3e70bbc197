package llm

import (
	"context"
	"errors"
	"io"
	"net"
	"regexp"
	"syscall"

	contractx "github.com/tanpawarit/clinical-intake-orchestrator/agent/contract"
)

var retryableStatus = regexp.MustCompile(`(?i)(status(\s*code)?[:=\s]+(429|5\d\d))|(\b(429|500|502|503|504)\b.*(too many requests|server error|bad gateway|unavailable|timeout))`)

// IsTransient reports whether a reasoning-service failure is worth one retry.
// Cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, contractx.ErrTransient) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return retryableStatus.MatchString(err.Error())
}
