package vessel

// NavigationalStatus is the AIS navigational status code (0-15).
type NavigationalStatus int

// Navigational status codes with a dedicated meaning for the alarm engine.
const (
	StatusUnderWayUsingEngine NavigationalStatus = 0
	StatusAtAnchor            NavigationalStatus = 1
	StatusNotUnderCommand     NavigationalStatus = 2
	StatusRestricted          NavigationalStatus = 3
	StatusConstrained         NavigationalStatus = 4
	StatusMoored              NavigationalStatus = 5
	StatusAground             NavigationalStatus = 6
	StatusFishing             NavigationalStatus = 7
	StatusUnderWaySailing     NavigationalStatus = 8
	StatusUndefined           NavigationalStatus = 15
)

//nolint:gochecknoglobals // Read-only lookup table.
var statusText = map[NavigationalStatus]string{
	StatusUnderWayUsingEngine: "Under way using engine",
	StatusAtAnchor:            "At anchor",
	StatusNotUnderCommand:     "Not under command",
	StatusRestricted:          "Restricted manoeuvrability",
	StatusConstrained:         "Constrained by her draught",
	StatusMoored:              "Moored",
	StatusAground:             "Aground",
	StatusFishing:             "Engaged in fishing",
	StatusUnderWaySailing:     "Under way sailing",
	StatusUndefined:           "Undefined",
}

// String returns the human readable status, "Unknown" for unmapped codes.
func (s NavigationalStatus) String() string {
	if text, ok := statusText[s]; ok {
		return text
	}

	return "Unknown"
}

// Valid reports whether the code is inside the AIS range.
func (s NavigationalStatus) Valid() bool {
	return s >= 0 && s <= 15
}

// Berthed reports whether the vessel is at anchor or moored.
// Berthed vessels are never tracked for inactivity or loitering.
func (s NavigationalStatus) Berthed() bool {
	return s == StatusAtAnchor || s == StatusMoored
}
