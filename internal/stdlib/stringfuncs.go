package stdlib

import (
	"strings"

	"xdl/internal/context"
	xerrors "xdl/internal/errors"
	"xdl/internal/value"
)

func init() {
	register("STRLEN", strlen)
	register("STRUPCASE", strupcase)
	register("STRLOWCASE", strlowcase)
	register("STRTRIM", strtrim)
	register("STRCOMPRESS", strcompress)
	register("STRPOS", strpos)
	register("STRMID", strmid)
	register("STRSPLIT", strsplit)
	register("STRJOIN", strjoin)
}

func strlen(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := requireArgs(args, 1, "STRLEN"); err != nil {
		return value.Undefined, err
	}
	return value.Long(int64(len(args[0].Str))), nil
}

func strupcase(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := requireArgs(args, 1, "STRUPCASE"); err != nil {
		return value.Undefined, err
	}
	return value.String(strings.ToUpper(args[0].Str)), nil
}

func strlowcase(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := requireArgs(args, 1, "STRLOWCASE"); err != nil {
		return value.Undefined, err
	}
	return value.String(strings.ToLower(args[0].Str)), nil
}

// strtrim mirrors IDL's STRTRIM(str, mode): mode 0 (default) trims
// trailing whitespace only, mode 1 trims leading only, mode 2 trims both.
func strtrim(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := requireArgs(args, 1, "STRTRIM"); err != nil {
		return value.Undefined, err
	}
	mode := intArg(args, 1, 0)
	s := args[0].Str
	switch mode {
	case 0:
		s = strings.TrimRight(s, " \t")
	case 1:
		s = strings.TrimLeft(s, " \t")
	default:
		s = strings.TrimSpace(s)
	}
	return value.String(s), nil
}

// strcompress collapses runs of whitespace to a single space, or removes
// all whitespace entirely when the /REMOVE_ALL keyword is set.
func strcompress(_ *context.Context, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if err := requireArgs(args, 1, "STRCOMPRESS"); err != nil {
		return value.Undefined, err
	}
	fields := strings.Fields(args[0].Str)
	if kwBool(kwargs, "REMOVE_ALL", false) {
		return value.String(strings.Join(fields, "")), nil
	}
	return value.String(strings.Join(fields, " ")), nil
}

// strpos returns the 0-based index of the first (or, with /REVERSE_SEARCH,
// last) occurrence of a substring, or -1 when absent.
func strpos(_ *context.Context, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if err := requireArgs(args, 2, "STRPOS"); err != nil {
		return value.Undefined, err
	}
	haystack, needle := args[0].Str, args[1].Str
	if kwBool(kwargs, "REVERSE_SEARCH", false) {
		return value.Long(int64(strings.LastIndex(haystack, needle))), nil
	}
	return value.Long(int64(strings.Index(haystack, needle))), nil
}

// strmid extracts a substring starting at pos, for length characters
// (defaulting to the remainder of the string), clamped to bounds.
func strmid(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := requireArgs(args, 2, "STRMID"); err != nil {
		return value.Undefined, err
	}
	s := args[0].Str
	pos := int(args[1].ToLong())
	if pos < 0 {
		pos = 0
	}
	if pos > len(s) {
		pos = len(s)
	}
	length := len(s) - pos
	if len(args) > 2 {
		length = int(args[2].ToLong())
	}
	end := pos + length
	if end > len(s) {
		end = len(s)
	}
	if end < pos {
		end = pos
	}
	return value.String(s[pos:end]), nil
}

// strsplit splits on a delimiter (default whitespace) into a NestedArray
// of STRING values.
func strsplit(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := requireArgs(args, 1, "STRSPLIT"); err != nil {
		return value.Undefined, err
	}
	var parts []string
	if len(args) > 1 && args[1].Str != "" {
		parts = strings.Split(args[0].Str, args[1].Str)
	} else {
		parts = strings.Fields(args[0].Str)
	}
	out := make([]value.Value, len(parts))
	for i, p := range parts {
		out[i] = value.String(p)
	}
	return value.NestedArray(out), nil
}

// strjoin concatenates an Array/NestedArray of strings with a separator
// (default "").
func strjoin(_ *context.Context, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := requireArgs(args, 1, "STRJOIN"); err != nil {
		return value.Undefined, err
	}
	sep := ""
	if len(args) > 1 {
		sep = args[1].Str
	}
	var parts []string
	switch args[0].Kind {
	case value.KindNestedArray:
		for _, e := range args[0].Nested {
			parts = append(parts, e.ToStringRepr())
		}
	case value.KindArray, value.KindMultiDim:
		for _, f := range args[0].Data {
			parts = append(parts, value.Double(f).ToStringRepr())
		}
	default:
		parts = append(parts, args[0].Str)
	}
	return value.String(strings.Join(parts, sep)), nil
}

var _ = xerrors.InvalidArgument
