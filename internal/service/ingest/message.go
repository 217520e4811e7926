package ingest

import (
	"time"

	"github.com/maritimalarm/maritime-alarm/internal/domain/vessel"
)

// message is one line of the AIS stream. Optional fields are pointers so a
// partial message does not erase what earlier messages reported.
type message struct {
	MMSI               int64    `json:"mmsi"`
	CountryCode        string   `json:"countryCode"`
	Latitude           *float64 `json:"latitude"`
	Longitude          *float64 `json:"longitude"`
	NavigationalStatus *int     `json:"navigationalStatus"`
	SpeedOverGround    *float64 `json:"speedOverGround"`
	TrueHeading        *float64 `json:"trueHeading"`
	Name               *string  `json:"name"`
	Destination        *string  `json:"destination"`
}

// merge applies the fields present in m to report and stamps it as seen at now.
func (m *message) merge(report *vessel.Report, now time.Time) {
	report.MMSI = m.MMSI
	report.LastSeen = vessel.NewTimestamp(now)

	if m.Latitude != nil {
		report.Latitude = *m.Latitude
	}

	if m.Longitude != nil {
		report.Longitude = *m.Longitude
	}

	if m.NavigationalStatus != nil {
		report.NavigationalStatus = vessel.NavigationalStatus(*m.NavigationalStatus)
	}

	if m.SpeedOverGround != nil {
		report.SpeedOverGround = *m.SpeedOverGround
	}

	if m.TrueHeading != nil {
		report.Heading = *m.TrueHeading
	}

	if m.Name != nil {
		report.Name = *m.Name
	}

	if m.Destination != nil {
		report.Destination = *m.Destination
	}

	report.StatusText = report.NavigationalStatus.String()
}
