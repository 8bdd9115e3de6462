package edge

import (
	"math"
	"strconv"
)

// keyName converts a path segment to a record field name.
func keyName(key any) (string, bool) {
	switch k := key.(type) {
	case string:
		return k, true
	case int:
		return strconv.Itoa(k), true
	case int64:
		return strconv.FormatInt(k, 10), true
	case int32:
		return strconv.FormatInt(int64(k), 10), true
	case uint:
		return strconv.FormatUint(uint64(k), 10), true
	case float64:
		if k == math.Trunc(k) {
			return strconv.FormatInt(int64(k), 10), true
		}
	}
	return "", false
}

// keyIndex converts a path segment to a sequence index.
func keyIndex(key any) (int, bool) {
	switch k := key.(type) {
	case int:
		return k, true
	case int64:
		return int(k), true
	case int32:
		return int(k), true
	case uint:
		return int(k), true
	case float64:
		if k == math.Trunc(k) {
			return int(k), true
		}
	case string:
		i, err := strconv.Atoi(k)
		if err == nil {
			return i, true
		}
	}
	return 0, false
}
