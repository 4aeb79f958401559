package inspect

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/dReshard/cmd/util"
	"github.com/ValentinKolb/dReshard/lib/dtype"
	"github.com/ValentinKolb/dReshard/lib/schema"
	"github.com/ValentinKolb/dReshard/lib/snapshot"
	"github.com/ValentinKolb/dReshard/lib/store"
	"github.com/ValentinKolb/dReshard/rpc/common"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// InspectCmd prints the layout of one snapshot file
	InspectCmd = &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the groups, attributes and datasets of a snapshot file",
		Long: `Print the tree of a snapshot file (.hdf5 or .dsnap) together with the
snapshot blocks that were detected in it.`,
		Args:    cobra.ExactArgs(1),
		PreRunE: processConfig,
		RunE:    runInspect,
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	key := "values"
	InspectCmd.Flags().Int(key, 8, util.WrapString("Number of attribute values to print (0 prints none)"))

	key = "blocks"
	InspectCmd.Flags().Bool(key, true, util.WrapString("Print the snapshot blocks that were detected"))
}

// processConfig binds the flags and sets up logging for inspect and verify
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	return common.InitLoggers(viper.GetString("log-level"))
}

func runInspect(_ *cobra.Command, args []string) error {
	r, err := snapshot.Open(afero.NewOsFs(), args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	fmt.Println(args[0])
	if err := printGroup(r, "/", 1, viper.GetInt("values")); err != nil {
		return err
	}

	if viper.GetBool("blocks") {
		p, err := schema.Probe(r)
		fmt.Println()
		if err != nil {
			fmt.Printf("not a snapshot: %v\n", err)
			return nil
		}
		fmt.Println("Blocks:")
		for _, b := range p.Blocks() {
			fmt.Printf("  %s\n", b)
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func printGroup(r store.IReader, path string, depth, values int) error {
	if err := printAttrs(r, path, depth, values); err != nil {
		return err
	}

	members, err := r.Members(path)
	if err != nil {
		return err
	}
	indent := strings.Repeat("  ", depth)
	for _, name := range members {
		child := store.Join(path, name)
		if r.HasGroup(child) {
			fmt.Printf("%s%s/\n", indent, name)
			if err := printGroup(r, child, depth+1, values); err != nil {
				return err
			}
			continue
		}

		dims, kind, err := r.Extent(child)
		if err != nil {
			return err
		}
		fmt.Printf("%s%s %s%v\n", indent, name, kind, dims)
		if err := printAttrs(r, child, depth+1, values); err != nil {
			return err
		}
	}
	return nil
}

func printAttrs(r store.IReader, path string, depth, values int) error {
	names, err := r.AttrNames(path)
	if err != nil {
		return err
	}
	indent := strings.Repeat("  ", depth)
	for _, name := range names {
		a, err := r.Attr(path, name)
		if err != nil {
			return err
		}
		if values > 0 && a.Kind != dtype.String {
			fmt.Printf("%s@%s = %s\n", indent, a, formatValues(a, values))
		} else {
			fmt.Printf("%s@%s\n", indent, a)
		}
	}
	return nil
}

// formatValues prints at most limit values of a numeric attribute
func formatValues(a store.Attr, limit int) string {
	var vals []string
	var err error
	switch a.Kind {
	case dtype.Float32:
		vals, err = format[float32](a)
	case dtype.Float64:
		vals, err = format[float64](a)
	case dtype.Uint32:
		vals, err = format[uint32](a)
	case dtype.Uint64:
		vals, err = format[uint64](a)
	case dtype.Int32:
		vals, err = format[int32](a)
	case dtype.Int64:
		vals, err = format[int64](a)
	}
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}

	if len(vals) > limit {
		vals = append(vals[:limit], fmt.Sprintf("... (%d values)", len(vals)))
	}
	if a.Dims == nil && len(vals) == 1 {
		return vals[0]
	}
	return "[" + strings.Join(vals, " ") + "]"
}

func format[V dtype.Numeric](a store.Attr) ([]string, error) {
	vals, err := store.Values[V](a)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = fmt.Sprint(v)
	}
	return out, nil
}
