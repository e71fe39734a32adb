package timezone

import (
	"time"
	_ "time/tzdata"

	"cloud.google.com/go/civil"
)

func mustLoadLocation(zone string) *time.Location {
	location, err := time.LoadLocation(zone)
	if err != nil {
		panic(err)
	}
	return location
}

var kyivLocation = mustLoadLocation("Europe/Kyiv")

// DateInKyiv returns the calendar date in Kyiv at the instant t.
func DateInKyiv(t time.Time) civil.Date {
	return civil.DateOf(t.In(kyivLocation))
}
