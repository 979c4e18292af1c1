// Package migrate upgrades stored documents across schema versions and
// reconstructs the unified document from the pre-unification legacy slots.
package migrate

import (
	"strconv"
	"strings"

	"pocketpal/internal/model"
)

// Compare orders two dot-separated version strings numerically, component
// by component, missing components defaulting to 0. Returns -1, 0 or 1.
func Compare(a, b string) int {
	partsA := strings.Split(a, ".")
	partsB := strings.Split(b, ".")

	n := len(partsA)
	if len(partsB) > n {
		n = len(partsB)
	}
	for i := 0; i < n; i++ {
		numA, numB := 0, 0
		if i < len(partsA) {
			numA, _ = strconv.Atoi(partsA[i])
		}
		if i < len(partsB) {
			numB, _ = strconv.Atoi(partsB[i])
		}
		if numA < numB {
			return -1
		}
		if numA > numB {
			return 1
		}
	}
	return 0
}

// NeedsMigration reports whether a document at version must be upgraded to
// reach the current schema.
func NeedsMigration(version string) bool {
	return Compare(version, model.CurrentVersion) < 0
}
