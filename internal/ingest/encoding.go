package ingest

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
)

// Encodings reported by decodeText.
const (
	EncodingUTF8        = "utf-8"
	EncodingShiftJIS    = "shift_jis"
	EncodingWindows1252 = "windows-1252"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText converts raw CSV bytes to UTF-8. Valid UTF-8 is used as is.
// Otherwise Shift_JIS is tried and kept when it decodes cleanly, and
// Windows-1252, which accepts any byte, is the fallback.
func decodeText(data []byte) (string, string) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), EncodingUTF8
	}

	if out, err := japanese.ShiftJIS.NewDecoder().Bytes(data); err == nil && !bytes.ContainsRune(out, utf8.RuneError) {
		return string(out), EncodingShiftJIS
	}

	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "�"), EncodingWindows1252
	}
	return string(out), EncodingWindows1252
}
