package invite

import "time"

// DefaultValidity is how long an issued credential stays usable
const DefaultValidity = 24 * time.Hour

// IsWithinThresholdPeriod checks if the given time is within the threshold
func IsWithinThresholdPeriod(t time.Time, pattern string) (bool, error) {
	duration, err := time.ParseDuration(pattern)
	if err != nil {
		return false, err
	}
	return withinWindow(t, duration, time.Now()), nil
}

// IsOutsideThresholdPeriod is the negation of IsWithinThresholdPeriod
func IsOutsideThresholdPeriod(t time.Time, pattern string) (bool, error) {
	valid, err := IsWithinThresholdPeriod(t, pattern)
	if err != nil {
		return false, err
	}

	return !valid, nil
}

// CredentialExpired reports whether a credential issued at issuedAt is past
// its window at now. The boundary instant itself is still valid.
func CredentialExpired(issuedAt time.Time, window time.Duration, now time.Time) bool {
	if window <= 0 {
		window = DefaultValidity
	}
	return now.After(issuedAt.Add(window))
}

func withinWindow(t time.Time, window time.Duration, now time.Time) bool {
	return t.After(now.Add(-window))
}
