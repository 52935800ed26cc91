/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/stephankramer/firedrake/InputParameters"
	"github.com/stephankramer/firedrake/model_problems/Poisson2D"
)

type ModelPoisson struct {
	Nx, NLevels, Degree int
	SolverType          string
	ParamsFile          string
	Graph               bool
	Delay               time.Duration
}

// PoissonCmd represents the poisson command
var PoissonCmd = &cobra.Command{
	Use:   "poisson",
	Short: "Poisson model problem on the unit square, solved by geometric multigrid",
	Long: `
Solves -Laplace(u) = f on the unit square with a manufactured solution,
using a hierarchy of uniformly refined meshes. The solver mode selects
between linear multigrid (assembled or matrix-free), the full
approximation scheme, and FAS-preconditioned Newton.`,
	Run: func(cmd *cobra.Command, args []string) {
		mp := &ModelPoisson{}
		mp.Nx, _ = cmd.Flags().GetInt("nx")
		mp.NLevels, _ = cmd.Flags().GetInt("levels")
		mp.Degree, _ = cmd.Flags().GetInt("degree")
		mp.SolverType, _ = cmd.Flags().GetString("solver")
		mp.ParamsFile, _ = cmd.Flags().GetString("paramsFile")
		mp.Graph, _ = cmd.Flags().GetBool("graph")
		dr, _ := cmd.Flags().GetInt("delay")
		mp.Delay = time.Duration(dr) * time.Millisecond
		if prof, _ := cmd.Flags().GetBool("profile"); prof {
			defer profile.Start().Stop()
		}
		sp := processPoissonInput(mp)
		RunPoisson(mp, sp)
	},
}

func processPoissonInput(mp *ModelPoisson) (sp *InputParameters.SolverParameters) {
	var (
		err error
	)
	if sp, err = InputParameters.Defaults(mp.SolverType); err != nil {
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}
	if len(mp.ParamsFile) != 0 {
		var data []byte
		if data, err = ioutil.ReadFile(mp.ParamsFile); err != nil {
			panic(err)
		}
		if err = sp.Parse(data); err != nil {
			panic(err)
		}
	}
	return
}

func RunPoisson(mp *ModelPoisson, sp *InputParameters.SolverParameters) {
	sp.Print()
	c, err := Poisson2D.NewPoisson(mp.Nx, mp.NLevels, mp.Degree, sp)
	if err != nil {
		panic(err)
	}
	if err = c.Run(mp.Graph, mp.Delay); err != nil {
		panic(err)
	}
}

func init() {
	rootCmd.AddCommand(PoissonCmd)
	PoissonCmd.Flags().IntP("nx", "x", 10, "Number of cells along each side of the coarse mesh")
	PoissonCmd.Flags().IntP("levels", "l", 2, "Number of refinement levels above the coarse mesh")
	PoissonCmd.Flags().IntP("degree", "n", 2, "polynomial degree of the Lagrange space")
	PoissonCmd.Flags().StringP("solver", "s", "mg", "solver mode: mg, mgmatfree, fas or newtonfas")
	PoissonCmd.Flags().StringP("paramsFile", "I", "", "YAML file overriding individual solver parameters like:\n\t- ksp_type\n\t- pc_mg_type")
	PoissonCmd.Flags().BoolP("graph", "g", false, "display a graph of the solution centerline")
	PoissonCmd.Flags().IntP("delay", "d", 0, "milliseconds of delay for plotting")
}
