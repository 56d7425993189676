package attr

// Attribute names. These strings are persisted in the summary table, so they
// must not change.
const (
	StartTime           = "Start Time"
	EndTime             = "End Time"
	ElapsedTime         = "Elapsed Time"
	MovingTime          = "Time in Motion"
	Cadence             = "Cadence"
	AvgCadence          = "Average Cadence"
	MaxCadence          = "Maximum Cadence"
	CadenceZone         = "Cadence Zone"
	Power               = "Power"
	ThreeSecPower       = "3 Second Power"
	AvgPower            = "Average Power"
	MaxPower            = "Maximum Power"
	PowerZone           = "Power Zone"
	NumWheelRevolutions = "Num. Wheel Revolutions"
	WheelSpeed          = "Wheel Speed"
	MinAltitude         = "Minimum Altitude"
	MaxAltitude         = "Maximum Altitude"
	AvgPace             = "Average Pace"
	MovingPace          = "Moving Pace"
	CurrentPace         = "Current Pace"
	FastestPace         = "Fastest Pace"
	AvgSpeed            = "Average Speed"
	MovingSpeed         = "Moving Speed"
	CurrentSpeed        = "Current Speed"
	FastestSpeed        = "Fastest Speed"
	Distance            = "Distance"
	MovingDistance      = "Moving Distance"
	StepsTaken          = "Steps Taken"
	HeartRate           = "Heart Rate"
	AvgHeartRate        = "Average Heart Rate"
	MaxHeartRate        = "Maximum Heart Rate"
	HeartRatePercentage = "Heart Rate Percentage"
	HeartRateZone       = "Heart Rate Zone"
	Latitude            = "Latitude"
	Longitude           = "Longitude"
	Altitude            = "Altitude"
	HorizontalAccuracy  = "Horizontal Accuracy"
	VerticalAccuracy    = "Vertical Accuracy"
	StartingLatitude    = "Starting Latitude"
	StartingLongitude   = "Starting Longitude"
	X                   = "X"
	Y                   = "Y"
	Z                   = "Z"
	CurrentClimb        = "Current Climb"
	BiggestClimb        = "Biggest Climb"
	TotalAscent         = "Total Ascent"
	VerticalSpeed       = "Vertical Speed"
	Calories            = "Calories"
	CurrentLapTime      = "Current Lap Time"
	RunStrideLength     = "Run Stride Length"
	RunDistance         = "Run Distance"

	FastestCentury       = "Fastest Century"
	FastestMetricCentury = "Fastest Metric Century"
	FastestMarathon      = "Fastest Marathon"
	FastestHalfMarathon  = "Fastest Half Marathon"
	Fastest10K           = "Fastest 10K"
	Fastest5K            = "Fastest 5K"
	FastestMile          = "Fastest Mile"
	FastestKm            = "Fastest Km"
	Fastest400M          = "Fastest 400M"
	Last10K              = "Last 10K"
	Last5K               = "Last 5K"
	LastMile             = "Last Mile"
	LastKm               = "Last Km"
	Last400M             = "Last 400M"

	// Prefixes for numbered attributes: "Split Time KM 1", "Lap Time 2".
	SplitTimePrefix = "Split Time "
	LapTimePrefix   = "Lap Time "
)
