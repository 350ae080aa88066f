package collector

import (
	"github.com/R167/raspi_exporter/internal/client"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	throttlingActiveName   = "raspi_throttling_active"
	throttlingOccurredName = "raspi_throttling_occurred"
	kindLabel              = "kind"
)

// ThrottlingKind is one of the four conditions reported by get_throttled
type ThrottlingKind int

const (
	Undervoltage ThrottlingKind = iota
	ArmFrequency
	Throttled
	SoftTemperatureLimit
)

// ThrottlingKinds lists every kind in label order of the exported families
var ThrottlingKinds = []ThrottlingKind{Undervoltage, ArmFrequency, Throttled, SoftTemperatureLimit}

// String returns the kind label value
func (k ThrottlingKind) String() string {
	switch k {
	case Undervoltage:
		return "undervoltage"
	case ArmFrequency:
		return "arm_frequency"
	case Throttled:
		return "throttled"
	case SoftTemperatureLimit:
		return "soft_temperature_limit"
	default:
		return "unknown"
	}
}

// active returns the instantaneous flag for kind
func active(s client.ThrottledState, k ThrottlingKind) bool {
	switch k {
	case Undervoltage:
		return s.UndervoltageDetected
	case ArmFrequency:
		return s.ArmFrequencyCapped
	case Throttled:
		return s.CurrentlyThrottled
	case SoftTemperatureLimit:
		return s.SoftTemperatureLimitActive
	}
	return false
}

// occurred returns the historical flag for kind
func occurred(s client.ThrottledState, k ThrottlingKind) bool {
	switch k {
	case Undervoltage:
		return s.UndervoltageHasOccurred
	case ArmFrequency:
		return s.ArmFrequencyCappingHasOccurred
	case Throttled:
		return s.ThrottlingHasOccurred
	case SoftTemperatureLimit:
		return s.SoftTemperatureLimitHasOccurred
	}
	return false
}

// latch is the per-kind occurrence state. latchOccurred is terminal.
type latch uint8

const (
	latchNotOccurred latch = iota
	latchOccurred
)

// observe returns the next state and whether the transition fired
func (l latch) observe(seen bool) (latch, bool) {
	if l == latchNotOccurred && seen {
		return latchOccurred, true
	}
	return l, false
}

// Registerer projects a decoded state onto the registry
type Registerer interface {
	Register(state client.ThrottledState) error
}

// ThrottledRegisterer owns the raspi_throttling_active and raspi_throttling_occurred families
type ThrottledRegisterer struct {
	registry *Registry

	throttlingActive   *prometheus.GaugeVec
	throttlingOccurred *prometheus.GaugeVec

	// guarded by registry's write lock
	latches [4]latch
}

// NewThrottledRegisterer registers both families into registry. It must be called once
// per registry; a second call against the same registry returns a *RegistrationError.
func NewThrottledRegisterer(registry *Registry) (*ThrottledRegisterer, error) {
	r := &ThrottledRegisterer{
		registry: registry,
		throttlingActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: throttlingActiveName,
				Help: "State about throttling active currently.",
			},
			[]string{kindLabel},
		),
		throttlingOccurred: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: throttlingOccurredName,
				Help: "State about throttling occurred in the past.",
			},
			[]string{kindLabel},
		),
	}

	if err := registry.Register(r.throttlingActive, r.throttlingOccurred); err != nil {
		return nil, err
	}
	return r, nil
}

// Register overwrites every active gauge and latches occurred gauges that see their flag set
func (r *ThrottledRegisterer) Register(state client.ThrottledState) error {
	r.registry.Update(func() {
		for _, k := range ThrottlingKinds {
			r.throttlingActive.WithLabelValues(k.String()).Set(boolToFloat(active(state, k)))

			g := r.throttlingOccurred.WithLabelValues(k.String())
			next, fired := r.latches[k].observe(occurred(state, k))
			r.latches[k] = next
			if fired {
				g.Set(1)
			}
		}
	})
	return nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
