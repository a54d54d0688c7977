package sh

import (
	"strconv"
	"strings"
)

func parseUint(s string, bits int, set func(uint64)) error {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, bits)
	if err != nil {
		return err
	}
	set(v)
	return nil
}

func parseInt(s string, bits int) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 0, bits)
}

// ParseFloatArg parses a numeric command argument.
func ParseFloatArg(args []string, index int, name string) (float64, error) {
	if len(args) <= index {
		return 0, &ArgError{Name: name}
	}
	v, err := strconv.ParseFloat(args[index], 64)
	if err != nil {
		return 0, &ArgError{Name: name, Err: err}
	}
	return v, nil
}

// ArgError reports a missing or invalid command argument.
type ArgError struct {
	Name string
	Err  error
}

func (e *ArgError) Error() string {
	if e.Err == nil {
		return e.Name + " required"
	}
	return "invalid " + e.Name + ": " + e.Err.Error()
}

func (e *ArgError) Unwrap() error {
	return e.Err
}
