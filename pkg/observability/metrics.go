package observability

import (
	"github.com/aretw0/espalier/pkg/command"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a command.Listener that records Prometheus counters.
type Metrics struct {
	commands   *prometheus.CounterVec
	violations *prometheus.CounterVec
}

var _ command.Listener = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "espalier_commands_total",
				Help: "Total number of command calls by operation, command type and result type",
			},
			[]string{"op", "command", "outcome"},
		),
		violations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "espalier_violations_total",
				Help: "Total number of rule violations reported, by severity",
			},
			[]string{"severity"},
		),
	}
	for _, c := range []prometheus.Collector{m.commands, m.violations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) record(op command.Operation, cmd command.Command, res *domain.Result) {
	m.commands.WithLabelValues(string(op), command.NameOf(cmd), string(res.Type())).Inc()
	if res == nil {
		return
	}
	for _, v := range res.Violations {
		m.violations.WithLabelValues(string(v.Severity)).Inc()
	}
}

func (m *Metrics) OnAllow(_ *command.Context, cmd command.Command, res *domain.Result) {
	m.record(command.OpAllow, cmd, res)
}

func (m *Metrics) OnExecute(_ *command.Context, cmd command.Command, res *domain.Result) {
	m.record(command.OpExecute, cmd, res)
}

func (m *Metrics) OnUndo(_ *command.Context, cmd command.Command, res *domain.Result) {
	m.record(command.OpUndo, cmd, res)
}
