package inspect

import (
	"fmt"

	"github.com/ValentinKolb/dReshard/cmd/util"
	"github.com/ValentinKolb/dReshard/lib/verify"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// VerifyCmd compares two snapshot sets
var VerifyCmd = &cobra.Command{
	Use:   "verify <dir-a> <dir-b>",
	Short: "Compare two snapshot sets group by group and value by value",
	Long: `Compare every group, attribute and dataset of the snapshot sets in two
directories. Both sets need the same number of files; base names and formats
may differ, so an input set can be compared with its rewritten copy.
The command fails if any difference was found.`,
	Args:    cobra.ExactArgs(2),
	PreRunE: processConfig,
	RunE:    runVerify,
}

func init() {
	key := "limit"
	VerifyCmd.Flags().Int(key, 20, util.WrapString("Maximum number of differences to report (0 reports all)"))
}

func runVerify(_ *cobra.Command, args []string) error {
	diffs, err := verify.Sets(afero.NewOsFs(), args[0], args[1], viper.GetInt("limit"))
	if err != nil {
		return err
	}
	for _, d := range diffs {
		fmt.Println(d)
	}
	if len(diffs) > 0 {
		return fmt.Errorf("%d differences between %s and %s", len(diffs), args[0], args[1])
	}
	fmt.Printf("%s and %s are identical\n", args[0], args[1])
	return nil
}
