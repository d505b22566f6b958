package uuid

import (
	"regexp"

	guuid "github.com/google/uuid"
)

// V4Generator random RFC 4122 UUIDs, used as primary keys of every entity row
type V4Generator struct{}

var _ Generator = V4Generator{}

// Generate implement Generator
func (V4Generator) Generate() (string, error) {
	id, err := guuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// canonical 8-4-4-4-12 form, version nibble 4, variant 8|9|a|b
var v4Pattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-4[0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

// IsValid reports whether s is a well-formed version 4 UUID in canonical form
func IsValid(s string) bool {
	if !v4Pattern.MatchString(s) {
		return false
	}
	id, err := guuid.Parse(s)
	return err == nil && id.Version() == 4 && id.Variant() == guuid.RFC4122
}
