package core

import "github.com/algotrade/execd/internal/risk"

// RiskDeniedError is returned by SubmitOrder when the risk engine
// refuses the intent. Reason names which limit tripped.
type RiskDeniedError struct {
	Reason risk.Reason
}

func (e *RiskDeniedError) Error() string {
	return "core: order denied by risk engine: " + e.Reason.String()
}
