// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianComply/services/comply/catalog"
)

var (
	controlsFunction string
	controlsCategory string

	frameworksCmd = &cobra.Command{
		Use:   "frameworks",
		Short: "Inspect loaded framework catalogs",
	}

	frameworksListCmd = &cobra.Command{
		Use:   "list",
		Short: "List loaded frameworks",
		Run:   runFrameworksList,
	}

	frameworksControlsCmd = &cobra.Command{
		Use:   "controls [framework-id]",
		Short: "List a framework's controls",
		Args:  cobra.ExactArgs(1),
		Run:   runFrameworksControls,
	}
)

func init() {
	frameworksControlsCmd.Flags().StringVar(&controlsFunction, "function", "", "Filter by function ID")
	frameworksControlsCmd.Flags().StringVar(&controlsCategory, "category", "", "Filter by category ID")

	frameworksCmd.AddCommand(frameworksListCmd)
	frameworksCmd.AddCommand(frameworksControlsCmd)
}

func runFrameworksList(cmd *cobra.Command, args []string) {
	logger := newLogger(true)
	defer logger.Close()

	svc, err := openService(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()

	infos := svc.ListFrameworks()
	if len(infos) == 0 {
		fmt.Println("No frameworks loaded. Add catalog JSON files to the frameworks directory.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tVERSION\tCONTROLS")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", info.ID, info.Name, info.Version, info.ControlCount)
	}
	w.Flush()
}

func runFrameworksControls(cmd *cobra.Command, args []string) {
	logger := newLogger(true)
	defer logger.Close()

	svc, err := openService(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()

	controls, err := svc.ListControls(args[0], catalog.Filter{
		FunctionID: controlsFunction,
		CategoryID: controlsCategory,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFUNCTION\tCATEGORY\tNAME")
	for _, ctrl := range controls {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ctrl.ID, ctrl.FunctionID, ctrl.CategoryID, ctrl.Name)
	}
	w.Flush()
}
