//go:build go1.18

package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseRecordID tests that parsing never panics on arbitrary input and
// always returns either a canonical id or an error, never both.
func FuzzParseRecordID(f *testing.F) {
	f.Add("")
	f.Add(validHexID)
	f.Add(zeroHexID)
	f.Add("not-a-record-id")
	f.Add("'; DROP TABLE records;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add(validHexID + "\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseRecordID(input)

		if err == nil {
			// Accepted ids must round-trip to themselves.
			roundTrip, err2 := ParseRecordID(id.String())
			if err2 != nil {
				t.Errorf("valid id failed round-trip: %v", err2)
			}
			if roundTrip != id {
				t.Error("round-trip changed id value")
			}
		}

		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// FuzzParseAllIDs ensures both id types validate identically.
func FuzzParseAllIDs(f *testing.F) {
	f.Add(validHexID)
	f.Add("")
	f.Add("invalid")

	f.Fuzz(func(t *testing.T, input string) {
		_, errRecord := ParseRecordID(input)
		_, errAgent := ParseAgentID(input)

		if (errRecord == nil) != (errAgent == nil) {
			t.Error("inconsistent parsing across id types")
		}
	})
}
