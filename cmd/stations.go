package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"tidbyt.dev/nexusmap"
)

var stationsCmd = &cobra.Command{
	Use:   "stations",
	Short: "Lists stations in the coordinate registry",
	Args:  cobra.NoArgs,
	RunE:  stations,
}

var missing bool

func init() {
	stationsCmd.Flags().BoolVarP(&missing, "missing", "m", false, "List surveyed stations lacking coordinates instead")
}

func stations(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	p, err := BuildPipeline(cfg)
	if err != nil {
		return err
	}
	if p.Storage != nil {
		defer p.Storage.Close()
	}

	coords, err := p.LoadStations()
	if err != nil {
		return err
	}

	if missing {
		records, err := p.LoadRecords()
		if err != nil {
			return err
		}
		for _, name := range nexusmap.MissingStations(records, coords) {
			fmt.Printf("%q\n", name)
		}
		return nil
	}

	names := make([]string, 0, len(coords))
	for name := range coords {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Printf("%s: %.6f, %.6f\n", name, coords[name].Lat, coords[name].Lon)
	}

	return nil
}
