package db

import (
	"database/sql/driver"
	"strings"

	sqlite "modernc.org/sqlite"
)

func init() {
	// SQLite's lower() and LIKE fold ASCII only.
	if err := sqlite.RegisterDeterministicScalarFunction("ulower", 1, unicodeLower); err != nil {
		panic(err)
	}
}

// unicodeLower backs the ulower(x) SQL function with strings.ToLower, the
// same folding applied to queries on the Go side.
func unicodeLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}
