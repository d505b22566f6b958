package cache

import (
	"fmt"
	"reflect"
	"strings"
)

// Key join prefix and args with "_". nil args and nil pointers are skipped,
// non-nil pointers are dereferenced. Argument order is significant.
func Key(prefix string, args ...interface{}) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, prefix)
	for _, arg := range args {
		if arg == nil {
			continue
		}
		v := reflect.ValueOf(arg)
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				continue
			}
			arg = v.Elem().Interface()
		}
		parts = append(parts, fmt.Sprint(arg))
	}
	return strings.Join(parts, "_")
}
