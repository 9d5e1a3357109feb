/*
Package randx provides generators for unique identifiers.
*/
package randx

import "github.com/google/uuid"

// ConnectionID returns a UUID v4 string identifying one client connection.
func ConnectionID() string {
	return uuid.NewString()
}
