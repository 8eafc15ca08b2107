package shared

import "fmt"

// CycleOpenLockKey builds the redis key serialising cycle opens for a business.
func CycleOpenLockKey(businessID int64) string {
	return fmt.Sprintf("cycle:business:%d:open", businessID)
}
