package sync

import "strings"

// isTestIdentity mirrors the admission gate's guard: events for synthetic
// identities never leave the device.
func isTestIdentity(studentID string) bool {
	return strings.Contains(strings.ToLower(studentID), "test")
}
