package stdlib

import (
	"xdl/internal/context"
	"xdl/internal/dataframe"
	xerrors "xdl/internal/errors"
	"xdl/internal/value"
)

func init() {
	register("XDLDATAFRAME_READ_CSV", xdlDataFrameReadCSV)
}

// xdlDataFrameReadCSV reads a CSV file via the dataframe collaborator and
// stores the resulting frame in the context's dataframe arena, returning
// a DataFrame(id) handle (spec.md §4.4's special-cased builtin).
func xdlDataFrameReadCSV(ctx *context.Context, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if err := requireArgs(args, 1, "XDLDATAFRAME_READ_CSV"); err != nil {
		return value.Undefined, err
	}
	path := args[0].Str
	delim := ','
	if d := kwString(kwargs, "DELIM", ","); d != "" {
		delim = rune(d[0])
	}
	df, err := dataframe.ReadCSV(path, delim)
	if err != nil {
		return value.Undefined, xerrors.New(xerrors.RuntimeErr, "XDLDATAFRAME_READ_CSV").Wrap(err)
	}
	id := ctx.NewDataFrame(df)
	return value.DataFrame(id), nil
}
