package evaluator

import (
	"context"
	"fmt"
	"time"

	"github.com/maritimalarm/maritime-alarm/internal/config"
	"github.com/maritimalarm/maritime-alarm/internal/domain/alarm"
	"github.com/maritimalarm/maritime-alarm/internal/domain/vessel"
	"github.com/maritimalarm/maritime-alarm/internal/geofence"
	"github.com/maritimalarm/maritime-alarm/internal/logger"
	"github.com/maritimalarm/maritime-alarm/internal/tracker"
)

// Oracle answers geometry queries against named sets.
type Oracle interface {
	WithinBufferedZone(ctx context.Context, pos vessel.Position, set string) (bool, error)
	DistanceToNearest(ctx context.Context, pos vessel.Position, set string) (float64, error)
}

// Condition reports whether a report satisfies a dwell rule.
type Condition func(ctx context.Context, report *vessel.Report) (bool, error)

// Rule is one dwell rule.
type Rule struct {
	// Reason is recorded on fired alarms.
	Reason alarm.Reason
	// Threshold is the continuous dwell that fires the rule.
	Threshold time.Duration
	// Description is the human readable alarm text.
	Description string
	// Condition is evaluated on every report.
	Condition Condition
}

// Evaluator turns tracked state into alarms.
type Evaluator struct {
	rules         []Rule
	oracle        Oracle
	inactiveAfter time.Duration
	exemptZones   string
}

// New builds the default rule set from the configured thresholds.
func New(oracle Oracle, rules config.Rules) *Evaluator {
	proximity := Rule{
		Reason:    alarm.ReasonProximityDwell,
		Threshold: rules.ProximityDwell,
		Condition: NearInfrastructure(oracle, rules.ProximityRadiusMeters),
	}
	proximity.Description = fmt.Sprintf("Within %.0f m of infrastructure for over %s",
		rules.ProximityRadiusMeters, humanize(rules.ProximityDwell))

	lowSpeed := Rule{
		Reason:    alarm.ReasonLowSpeedDwell,
		Threshold: rules.LowSpeedDwell,
		Condition: SpeedBetween(rules.LowSpeedMinKnots, rules.LowSpeedMaxKnots),
	}
	lowSpeed.Description = fmt.Sprintf("Speed between %g and %g knots for over %s",
		rules.LowSpeedMinKnots, rules.LowSpeedMaxKnots, humanize(rules.LowSpeedDwell))

	return NewWithRules(oracle, rules.InactiveAfter, proximity, lowSpeed)
}

// NewWithRules builds an evaluator with a custom dwell rule table.
func NewWithRules(oracle Oracle, inactiveAfter time.Duration, rules ...Rule) *Evaluator {
	return &Evaluator{
		rules:         rules,
		oracle:        oracle,
		inactiveAfter: inactiveAfter,
		exemptZones:   geofence.SetBorder,
	}
}

// Rules returns the dwell rule table.
func (e *Evaluator) Rules() []Rule {
	return e.rules
}

// Observe records the reports in state and runs the dwell rules on them.
func (e *Evaluator) Observe(ctx context.Context, state *tracker.State, reports []vessel.Report, now time.Time) []alarm.Alarm {
	var fired []alarm.Alarm

	for i := range reports {
		report := &reports[i]

		tracked, ok := state.Observe(report, now)
		if !ok {
			continue
		}

		for _, rule := range e.rules {
			active, err := rule.Condition(ctx, report)
			if err != nil {
				logger.WarnKV(ctx, "Rule condition unknown, skipping cycle",
					"reason", rule.Reason, "mmsi", report.MMSI, "error", err)

				continue
			}

			if tracked.Dwell(rule.Reason).Observe(active, now, rule.Threshold) {
				fired = append(fired, alarm.New(tracked.Name, tracked.MMSI, rule.Reason, rule.Description, now))
			}
		}
	}

	return fired
}

// Sweep fires INACTIVE once per silent period for vessels outside the border zones.
func (e *Evaluator) Sweep(ctx context.Context, state *tracker.State, now time.Time) []alarm.Alarm {
	var fired []alarm.Alarm

	for _, tracked := range state.Vessels() {
		if !tracked.Inactivity.Due(now, e.inactiveAfter) {
			continue
		}

		exempt, err := e.oracle.WithinBufferedZone(ctx, tracked.Position, e.exemptZones)
		if err != nil {
			logger.WarnKV(ctx, "Border check failed, inactivity left unlatched",
				"mmsi", tracked.MMSI, "error", err)

			continue
		}

		// Silence is expected inside the border zones, re-checked every sweep.
		if exempt {
			continue
		}

		tracked.Inactivity.Latch()

		fired = append(fired, alarm.New(tracked.Name, tracked.MMSI, alarm.ReasonInactive,
			"Inactive for over "+humanize(e.inactiveAfter), now))
	}

	return fired
}

// SpeedBetween is true when the speed over ground lies in [minKnots, maxKnots].
func SpeedBetween(minKnots, maxKnots float64) Condition {
	return func(_ context.Context, report *vessel.Report) (bool, error) {
		return report.SpeedOverGround >= minKnots && report.SpeedOverGround <= maxKnots, nil
	}
}

// NearInfrastructure is true within radiusMeters of the infrastructure set.
func NearInfrastructure(oracle Oracle, radiusMeters float64) Condition {
	return func(ctx context.Context, report *vessel.Report) (bool, error) {
		distance, err := oracle.DistanceToNearest(ctx, report.Position(), geofence.SetInfrastructure)
		if err != nil {
			return false, fmt.Errorf("distance to infrastructure: %w", err)
		}

		return distance <= radiusMeters, nil
	}
}

// humanize renders whole hours and minutes the way operators read them.
func humanize(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "1 hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	default:
		return d.String()
	}
}
