package utils

import (
	"os"
	"strconv"
)

// GetenvInt returns the integer value of the environment variable `name`, or `defaultVal` when it
// is unset or does not parse.
func GetenvInt(name string, defaultVal int) int {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return defaultVal
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return defaultVal
	}
	return val
}

// GetenvFloat is GetenvInt for floating point values.
func GetenvFloat(name string, defaultVal float64) float64 {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return defaultVal
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return defaultVal
	}
	return val
}
