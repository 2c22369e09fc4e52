package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tidbyt.dev/nexusmap/model"
)

var directions []string

func init() {
	renderCmd.Flags().StringSliceVarP(&directions, "direction", "d", nil, "Only render these directions (source, destination)")
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Renders one demand map per direction and time window (default)",
	Args:  cobra.NoArgs,
	RunE:  renderMaps,
}

func renderMaps(cmd *cobra.Command, args []string) error {
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

	if len(directions) > 0 {
		p.Directions = nil
		for _, d := range directions {
			parsed, err := model.ParseDirection(d)
			if err != nil {
				return err
			}
			p.Directions = append(p.Directions, parsed)
		}
	}

	artifacts, err := p.Run()
	if err != nil {
		return err
	}

	skipped := 0
	for _, a := range artifacts {
		skipped += len(a.Skipped)
	}
	logrus.WithFields(logrus.Fields{
		"maps":    len(artifacts),
		"skipped": skipped,
	}).Infof("done, maps written to %s", cfg.OutputDir)

	return nil
}
