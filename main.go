package main

import (
	"fmt"
	"os"

	"findex/cmd/aggregate"
	"findex/cmd/analyze"
	"findex/cmd/batch"
	"findex/cmd/classify"
	"findex/cmd/conflicts"
	"findex/cmd/extract"
	"findex/cmd/points"
	"findex/cmd/root"
	"findex/cmd/validate"
)

func init() {
	root.Init()

	root.Cmd.AddCommand(extract.Cmd)
	root.Cmd.AddCommand(batch.Cmd)
	root.Cmd.AddCommand(classify.Cmd)
	root.Cmd.AddCommand(aggregate.Cmd)
	root.Cmd.AddCommand(analyze.Cmd)
	root.Cmd.AddCommand(conflicts.Cmd)
	root.Cmd.AddCommand(points.Cmd)
	root.Cmd.AddCommand(validate.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
