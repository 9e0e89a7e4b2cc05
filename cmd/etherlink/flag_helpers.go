package main

import "strings"

// stringSlice accumulates repeated occurrences of a flag, e.g. multiple
// --peer <addr> arguments in a single command line.
type stringSlice []string

func (s *stringSlice) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSlice) Set(value string) error {
	*s = append(*s, value)
	return nil
}
