package plan

import "fmt"

// Input keys accepted by ParseInputs.
const (
	KeyGoalDistance          = "Goal Run Distance"
	KeyGoalType              = "Goal Type"
	KeyShortIntervalPace     = "Short Interval Run Pace"
	KeyThresholdPace         = "Functional Threshold Pace"
	KeySpeedPace             = "Speed Session Pace"
	KeyTempoPace             = "Tempo Run Pace"
	KeyLongPace              = "Long Run Pace"
	KeyEasyPace              = "Easy Run Pace"
	KeyLongestRunInFourWeeks = "Longest Run In Four Weeks"
	KeyLongestRunWeek1       = "Longest Run Week 1"
	KeyLongestRunWeek2       = "Longest Run Week 2"
	KeyLongestRunWeek3       = "Longest Run Week 3"
	KeyAvgRunDistance        = "Average Running Distance (Last 4 Weeks)"
	KeyExperienceLevel       = "Experience Level"
)

// GoalType says whether the athlete only wants to finish the goal distance or
// also cares about speed.
type GoalType int

const (
	GoalCompletion GoalType = iota
	GoalSpeed
)

func (g GoalType) String() string {
	switch g {
	case GoalCompletion:
		return "completion"
	case GoalSpeed:
		return "speed"
	default:
		return fmt.Sprintf("GoalType(%d)", int(g))
	}
}

// ParseGoalType accepts "completion" or "speed".
func ParseGoalType(s string) (GoalType, error) {
	switch s {
	case "completion", "":
		return GoalCompletion, nil
	case "speed":
		return GoalSpeed, nil
	default:
		return 0, fmt.Errorf("unknown goal type %q", s)
	}
}

// ExperienceLevel tiers the easy/hard balance and distance ceilings.
type ExperienceLevel int

const (
	Beginner ExperienceLevel = iota + 1
	Intermediate
	Advanced
)

func (e ExperienceLevel) String() string {
	switch e {
	case Beginner:
		return "beginner"
	case Intermediate:
		return "intermediate"
	case Advanced:
		return "advanced"
	default:
		return fmt.Sprintf("ExperienceLevel(%d)", int(e))
	}
}

// ParseExperienceLevel accepts the String form.
func ParseExperienceLevel(s string) (ExperienceLevel, error) {
	for _, e := range []ExperienceLevel{Beginner, Intermediate, Advanced} {
		if e.String() == s {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown experience level %q", s)
}

// Inputs are the planning parameters. Distances are metres, paces metres
// per minute. LongestRunWeek1 is the most recent full week.
type Inputs struct {
	GoalDistance          float64         `json:"goal_distance"`
	GoalType              GoalType        `json:"goal_type"`
	ShortIntervalPace     float64         `json:"short_interval_pace"`
	ThresholdPace         float64         `json:"threshold_pace"`
	SpeedPace             float64         `json:"speed_pace"`
	TempoPace             float64         `json:"tempo_pace"`
	LongPace              float64         `json:"long_pace"`
	EasyPace              float64         `json:"easy_pace"`
	LongestRunInFourWeeks float64         `json:"longest_run_in_four_weeks"`
	LongestRunWeek1       float64         `json:"longest_run_week_1"`
	LongestRunWeek2       float64         `json:"longest_run_week_2"`
	LongestRunWeek3       float64         `json:"longest_run_week_3"`
	AvgRunDistance        float64         `json:"avg_run_distance"`
	ExperienceLevel       ExperienceLevel `json:"experience_level"`
}

// ParseInputs reads the named-parameter form. Missing keys read as zero,
// which the generator treats as absent data.
func ParseInputs(m map[string]float64) Inputs {
	return Inputs{
		GoalDistance:          m[KeyGoalDistance],
		GoalType:              GoalType(int(m[KeyGoalType])),
		ShortIntervalPace:     m[KeyShortIntervalPace],
		ThresholdPace:         m[KeyThresholdPace],
		SpeedPace:             m[KeySpeedPace],
		TempoPace:             m[KeyTempoPace],
		LongPace:              m[KeyLongPace],
		EasyPace:              m[KeyEasyPace],
		LongestRunInFourWeeks: m[KeyLongestRunInFourWeeks],
		LongestRunWeek1:       m[KeyLongestRunWeek1],
		LongestRunWeek2:       m[KeyLongestRunWeek2],
		LongestRunWeek3:       m[KeyLongestRunWeek3],
		AvgRunDistance:        m[KeyAvgRunDistance],
		ExperienceLevel:       ExperienceLevel(int(m[KeyExperienceLevel])),
	}
}

// Map is the inverse of ParseInputs.
func (in Inputs) Map() map[string]float64 {
	return map[string]float64{
		KeyGoalDistance:          in.GoalDistance,
		KeyGoalType:              float64(in.GoalType),
		KeyShortIntervalPace:     in.ShortIntervalPace,
		KeyThresholdPace:         in.ThresholdPace,
		KeySpeedPace:             in.SpeedPace,
		KeyTempoPace:             in.TempoPace,
		KeyLongPace:              in.LongPace,
		KeyEasyPace:              in.EasyPace,
		KeyLongestRunInFourWeeks: in.LongestRunInFourWeeks,
		KeyLongestRunWeek1:       in.LongestRunWeek1,
		KeyLongestRunWeek2:       in.LongestRunWeek2,
		KeyLongestRunWeek3:       in.LongestRunWeek3,
		KeyAvgRunDistance:        in.AvgRunDistance,
		KeyExperienceLevel:       float64(in.ExperienceLevel),
	}
}
