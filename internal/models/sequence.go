package models

import "fmt"

// Sequence names. The complaint serial is a single global counter that never
// resets, even though the tracking code embeds the calendar year; identity
// codes reset per year.
const (
	SeqComplaintSerial = "complaint_serial"
)

// UserCodeSequence returns the per-year identity code sequence name.
func UserCodeSequence(year int) string {
	return fmt.Sprintf("user_code_%d", year)
}

// TrackingID formats the public complaint tracking code. Deterministic in
// (year, serial); computed once at creation and never recomputed.
func TrackingID(year int, serial int64) string {
	return fmt.Sprintf("SJD/%d/CMP%06d", year, serial)
}

// UserCode formats the human identity code issued to onboarded accounts.
func UserCode(year int, serial int64) string {
	return fmt.Sprintf("SJD/%d/%04d", year, serial)
}
