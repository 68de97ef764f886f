package metrics

// ValidationFailed records a submit rejected before reaching the auth service
func ValidationFailed(reason string) {
	LoginValidationFailuresTotal.WithLabelValues(reason).Inc()
}

// SubmissionStarted should be called when a login call begins
func SubmissionStarted() {
	LoginSubmissionsInFlight.Inc()
}

// SubmissionResolved should be called once the login call has an answer
func SubmissionResolved() {
	LoginSubmissionsInFlight.Dec()
}
