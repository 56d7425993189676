package plan

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/trainlog/internal/activity"
	"github.com/banshee-data/trainlog/internal/monitoring"
	"github.com/banshee-data/trainlog/internal/observability"
)

const (
	// MaxIterations caps the week-balancing loop.
	MaxIterations = 6

	minLongestRun     = 100.0 // below this there is no usable history
	minPace           = 0.1
	freeRunDistance   = 5000.0
	minEasyRun        = 2000.0
	minHardDistance   = 1000.0
	minTempoTarget    = 2000.0
	tempoMinutes      = 30.0
	warmupSeconds     = 10 * 60.0
	cooldownSeconds   = 10 * 60.0
	fatigueDiscount   = 0.75
	longRunGrowth     = 1.1
	recoveryMultiple  = 2
	shortIntervalSize = 1000.0
)

// intervalDistances are the "natural" distances, in metres, that tempo and
// interval efforts snap to.
var intervalDistances = []float64{400, 800, 1000, 2000, 3000, 4000, 5000, 6000, 7000, 8000, 9000, 10000, 12000, 15000, 20000, 21000, 25000}

// speedTemplate is a rep range over a fixed rep distance.
type speedTemplate struct {
	minReps, maxReps int
	distance         float64
}

var speedTemplates = []speedTemplate{
	{4, 8, 100}, {4, 8, 200}, {4, 8, 400}, {4, 6, 600}, {2, 4, 800}, {2, 4, 1000}, {2, 4, 1600},
}

// NearestIntervalDistance snaps a distance to the closest member of the
// natural interval list. When equidistant from two members the lower wins.
// Distances past the end of the list return the last member.
func NearestIntervalDistance(distance float64) float64 {
	var last float64
	for _, cur := range intervalDistances {
		if cur > distance {
			if last > 0 && cur-distance >= distance-last {
				return last
			}
			return cur
		}
		last = cur
	}
	return intervalDistances[len(intervalDistances)-1]
}

// RoundDistance rounds up to the next 100 metres. Float noise just above a
// multiple of 100 does not round up.
func RoundDistance(distance float64) float64 {
	return math.Ceil(distance/100-1e-9) * 100
}

// Plan is the outcome of one Generate call.
type Plan struct {
	Workouts     []*Workout `json:"workouts"`
	Iterations   int        `json:"iterations"`
	EasyDistance float64    `json:"easy_distance"`
	HardDistance float64    `json:"hard_distance"`
}

// EasyFraction is easy distance over total distance, zero for an empty plan.
func (p Plan) EasyFraction() float64 {
	total := p.EasyDistance + p.HardDistance
	if total <= 0 {
		return 0
	}
	return p.EasyDistance / total
}

// Generator builds weekly plans. Its random source is seeded once, so a
// fixed seed reproduces the same sequence of plans. Safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand

	easy float64
	hard float64
}

// NewGenerator creates a generator seeded with seed.
func NewGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Generate plans one week. Missing history yields two free runs; missing
// pace data yields an empty plan.
func (g *Generator) Generate(in Inputs) Plan {
	g.mu.Lock()
	defer g.mu.Unlock()
	defer func(start time.Time) { observability.RecordPlanDuration(time.Since(start)) }(time.Now())

	if !(in.LongestRunInFourWeeks > minLongestRun) {
		monitoring.Logf("[plan] longest run %.0fm below %.0fm; planning free runs", in.LongestRunInFourWeeks, minLongestRun)
		return Plan{Workouts: []*Workout{g.freeRun(), g.freeRun()}}
	}
	for _, pace := range []float64{in.ShortIntervalPace, in.SpeedPace, in.TempoPace, in.LongPace, in.EasyPace} {
		if !(pace > minPace) {
			monitoring.Logf("[plan] missing pace data; no workouts planned")
			return Plan{}
		}
	}

	baseline := in.LongestRunInFourWeeks
	w1, w2, w3 := in.LongestRunWeek1, in.LongestRunWeek2, in.LongestRunWeek3
	if w1 > minPace && w2 > minPace && w3 > minPace && w1 >= w2 && w2 >= w3 {
		// Three weeks of growth in a row: plan a recovery week.
		baseline *= fatigueDiscount
	}

	// Quadratic fit of the longest training run needed for a goal distance.
	g2 := -0.002 * in.GoalDistance
	maxLongRun := g2*g2 + 0.7*in.GoalDistance + 4.4
	if baseline >= maxLongRun {
		baseline = maxLongRun
	}

	var maxEasy, maxTempo float64
	if in.ExperienceLevel == Beginner {
		maxEasy = baseline * 0.60
		maxTempo = baseline * 0.40
	} else {
		maxEasy = baseline * 0.75
		maxTempo = baseline * 0.50
	}

	minRun := in.AvgRunDistance * 0.5
	if minRun > maxEasy {
		minRun = maxEasy
	}

	var minEasyFraction float64
	switch in.ExperienceLevel {
	case Beginner:
		minEasyFraction = 0.90
	case Intermediate:
		minEasyFraction = 0.80
	case Advanced:
		minEasyFraction = 0.75
	default:
		minEasyFraction = 0.75
	}

	var p Plan
	for p.Iterations < MaxIterations {
		g.easy, g.hard = 0, 0
		week := []*Workout{
			g.longRun(in.LongPace, baseline, minRun, maxLongRun),
			g.easyRun(in.EasyPace, minRun, maxEasy),
			g.tempoRun(in.TempoPace, in.EasyPace, maxTempo),
		}
		if in.GoalType == GoalSpeed {
			week = append(week, g.speedRun(in.ShortIntervalPace, in.SpeedPace, in.EasyPace, maxTempo))
		}
		week = append(week, g.easyRun(in.EasyPace, minRun, maxEasy))

		p = Plan{Workouts: week, Iterations: p.Iterations + 1, EasyDistance: g.easy, HardDistance: g.hard}
		if p.EasyFraction() >= minEasyFraction {
			break
		}
	}

	for _, w := range p.Workouts {
		w.CalculateEstimatedTrainingStress(in.ThresholdPace)
	}
	observability.RecordPlanIterations(p.Iterations)
	monitoring.Logf("[plan] %d workouts after %d iterations, easy fraction %.2f",
		len(p.Workouts), p.Iterations, p.EasyFraction())
	return p
}

func newWorkout(t WorkoutType) *Workout {
	w := NewWorkout(t, activity.Running)
	w.ID = uuid.NewString()
	return w
}

func (g *Generator) freeRun() *Workout {
	w := newWorkout(FreeRun)
	w.AddInterval(1, freeRunDistance, 0, 0, 0)
	return w
}

// longRun is 10% past the baseline, kept within [minRun, maxRun].
func (g *Generator) longRun(pace, baseline, minRun, maxRun float64) *Workout {
	d := baseline * longRunGrowth
	if d > maxRun {
		d = maxRun
	}
	if d < minRun {
		d = minRun
	}
	d = RoundDistance(d)

	w := newWorkout(LongRun)
	w.AddInterval(1, d, pace, 0, 0)
	g.easy += d
	return w
}

// easyRun draws a distance uniformly from [minRun, maxRun], both floored at
// 2 km, and rounds it down to 10 m.
func (g *Generator) easyRun(pace, minRun, maxRun float64) *Workout {
	lo := int(math.Max(minRun, minEasyRun))
	hi := int(math.Max(maxRun, minEasyRun))
	if hi < lo {
		hi = lo
	}
	d := float64((lo + g.rng.IntN(hi-lo+1)) / 10 * 10)

	w := newWorkout(EasyRun)
	w.AddInterval(1, d, pace, 0, 0)
	g.easy += d
	return w
}

// warmupDistance is the easy distance covered by a warm-up or cool-down.
func warmupDistance(seconds, easyPace float64) float64 {
	return seconds / 60 * easyPace
}

func (g *Generator) tempoRun(tempoPace, easyPace, maxTempo float64) *Workout {
	d := NearestIntervalDistance(math.Max(tempoMinutes*tempoPace, minTempoTarget))
	if d > maxTempo {
		d = maxTempo
	}
	if d < minHardDistance {
		d = minHardDistance
	}

	w := newWorkout(TempoRun)
	w.AddWarmup(warmupSeconds, easyPace)
	w.AddInterval(1, d, tempoPace, 0, 0)
	w.AddCooldown(cooldownSeconds, easyPace)

	g.easy += warmupDistance(warmupSeconds, easyPace) + warmupDistance(cooldownSeconds, easyPace)
	g.hard += d
	return w
}

// speedRun picks a rep template uniformly, then a rep count uniformly within
// it. Total hard distance is kept within [1000, maxTempo] by adjusting reps.
func (g *Generator) speedRun(shortPace, speedPace, easyPace, maxTempo float64) *Workout {
	tmpl := speedTemplates[g.rng.IntN(len(speedTemplates))]
	reps := tmpl.minReps + g.rng.IntN(tmpl.maxReps-tmpl.minReps+1)

	pace := speedPace
	if tmpl.distance < shortIntervalSize {
		pace = shortPace
	}
	if float64(reps)*tmpl.distance > maxTempo {
		reps = max(1, int(maxTempo/tmpl.distance))
	}
	if float64(reps)*tmpl.distance < minHardDistance {
		reps = int(math.Ceil(minHardDistance / tmpl.distance))
	}
	recovery := tmpl.distance * recoveryMultiple

	w := newWorkout(SpeedRun)
	w.AddWarmup(warmupSeconds, easyPace)
	w.AddInterval(reps, tmpl.distance, pace, recovery, easyPace)
	w.AddCooldown(cooldownSeconds, easyPace)

	g.easy += warmupDistance(warmupSeconds, easyPace) + warmupDistance(cooldownSeconds, easyPace)
	g.easy += float64(reps-1) * recovery
	g.hard += float64(reps) * tmpl.distance
	return w
}
