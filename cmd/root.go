/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/kbmgo
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package main

/*****************************************************************************************************************/

import (
	"github.com/observerly/kbmgo/internal/searchcmd"
	"github.com/spf13/cobra"
)

/*****************************************************************************************************************/

var rootCommand = &cobra.Command{
	Use:   "kbmgo",
	Short: "kbmgo CLI is a command-line tool for running a shift-and-stack moving-object trajectory search over a stack of astronomical images.",
	Long:  "kbmgo CLI is a command-line tool for running a shift-and-stack moving-object trajectory search over a stack of astronomical images.",
}

/*****************************************************************************************************************/

func init() {
	rootCommand.AddCommand(searchcmd.SearchCommand)
}

/*****************************************************************************************************************/

func Execute() {
	if err := rootCommand.Execute(); err != nil {
		panic(err)
	}
}

/*****************************************************************************************************************/
