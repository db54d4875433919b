package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/Moscow")
	if err != nil {
		panic(err)
	}
}

// force timezone to be portal-local because the cabinet renders billing
// periods in Moscow time, and comparing them against server-local
// <time.Time>.Year()/Month() shifts them around midnight
func Now() time.Time {
	return time.Now().In(Location)
}

// the first instant of t's calendar month
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, Location)
}
