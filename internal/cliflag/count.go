// Package cliflag adds a small flag.Value this codebase's CLI needs beyond
// what flag.String/flag.Int give: a counted switch for repeated -v.
package cliflag

import "strconv"

// Count implements flag.Value for a flag that increments each time it is
// given, e.g. "-v -v -v" => 3.
type Count int

func (c *Count) String() string {
	if c == nil {
		return "0"
	}
	return strconv.Itoa(int(*c))
}

// Set is called by the flag package once per occurrence of the flag; the
// value string is whatever follows "=" (e.g. for -v=true) and is ignored
// for the boolean-style repeated use this type supports.
func (c *Count) Set(string) error {
	*c++
	return nil
}

// IsBoolFlag lets "-v" be given without a value, the same as flag.Bool,
// so repeated "-v -v -v" increments three times instead of requiring
// "-v=1 -v=1 -v=1".
func (c *Count) IsBoolFlag() bool { return true }
