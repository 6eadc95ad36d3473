package domain

import "fmt"

// CollisionPolicy decides what happens when the archive name is taken.
type CollisionPolicy string

const (
	// CollisionSuffix appends _dupN before the extension.
	CollisionSuffix CollisionPolicy = "suffix"
	// CollisionOverwrite replaces the existing file.
	CollisionOverwrite CollisionPolicy = "overwrite"
	// CollisionReject fails the archive with ErrDestinationExists.
	CollisionReject CollisionPolicy = "reject"
)

// ParseCollisionPolicy validates a policy name.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch p := CollisionPolicy(s); p {
	case CollisionSuffix, CollisionOverwrite, CollisionReject:
		return p, nil
	default:
		return "", fmt.Errorf("invalid collision policy %q: want suffix, overwrite or reject", s)
	}
}
