// Package encoding provides text encoding utilities for MU data files, whose
// file and texture names are stored in the Korean code page.
package encoding

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// ToUTF8 returns s unchanged when it is valid UTF-8 and otherwise decodes it
// as EUC-KR (CP949). Input that fails to decode is returned as is.
func ToUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	result, _, err := transform.String(korean.EUCKR.NewDecoder(), s)
	if err != nil {
		return s
	}
	return result
}
