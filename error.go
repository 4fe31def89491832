package smi

import (
	"github.com/stvp/rollbar"
)

// ErrorReporter forwards fatal errors, such as a regeneration that failed to persist, to an external
// crash reporting service
type ErrorReporter interface {
	ReportError(err error)
	Wait()
}

type errorService struct {
	suppress bool
}

// NewErrorReporter returns a reporter that sends errors to Rollbar.  Nothing is sent when suppress is
// set or token is empty.
func NewErrorReporter(token string, environment string, suppress bool) ErrorReporter {
	if token == "" {
		suppress = true
	}
	if !suppress {
		rollbar.Token = token
		switch environment {
		case "development":
			rollbar.Environment = "development"
		default:
			rollbar.Environment = "production"
		}
	}
	return errorService{suppress: suppress}
}

// ReportError sends err to Rollbar
func (e errorService) ReportError(err error) {
	if e.suppress || err == nil {
		return
	}
	rollbar.Error(rollbar.ERR, err)
}

// Wait blocks until queued reports are sent
func (e errorService) Wait() {
	if e.suppress {
		return
	}
	rollbar.Wait()
}

type noopReporter struct{}

func (noopReporter) ReportError(err error) {}
func (noopReporter) Wait()                 {}
