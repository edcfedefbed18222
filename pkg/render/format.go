package render

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is an output format for a drawn tree.
type Format string

// Supported formats.
const (
	FormatDOT Format = "dot"
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// Formats lists the supported formats in display order.
var Formats = []Format{FormatSVG, FormatPNG, FormatDOT}

// ParseFormat converts a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatDOT, FormatSVG, FormatPNG:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want svg, png or dot)", s)
}

// FormatFromPath infers the format from a file extension, falling back to
// def when the extension is not recognised.
func FormatFromPath(path string, def Format) Format {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if f, err := ParseFormat(ext); err == nil {
		return f
	}
	if ext == "gv" {
		return FormatDOT
	}
	return def
}
