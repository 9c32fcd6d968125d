package layer

import (
	"go.uber.org/zap"

	"github.com/apishim/api-layer/api"
)

// Event records one completed trampoline call. HasResult is false for
// void entry points, whose failures are absorbed without a code.
type Event struct {
	Proc      string
	Result    api.Result
	HasResult bool
	Recovered bool
}

func (l *Layer) traceBegin(name string) {
	Logger().Debug("--> call", zap.String("proc", name))
}

func (l *Layer) traceEnd(ev Event) {
	if ev.HasResult {
		Logger().Debug("<-- call",
			zap.String("proc", ev.Proc),
			zap.Stringer("result", ev.Result),
			zap.Bool("recovered", ev.Recovered))
	} else {
		Logger().Debug("<-- call",
			zap.String("proc", ev.Proc),
			zap.Bool("recovered", ev.Recovered))
	}
	if l.cfg.OnTrace != nil {
		l.cfg.OnTrace(ev)
	}
}
