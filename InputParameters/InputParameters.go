package InputParameters

import (
	"fmt"

	"github.com/ghodss/yaml"
)

// Solver parameters obtained from the YAML input file. The option
// vocabulary follows the PETSc naming convention: snes_* controls the
// outer nonlinear iteration, ksp_* the Krylov solve, pc_* / mg_* the
// multigrid preconditioner and fas_* / npc_* the nonlinear multigrid.
type SolverParameters struct {
	SnesType            string  `yaml:"snes_type"`
	SnesMaxIt           int     `yaml:"snes_max_it"`
	SnesRtol            float64 `yaml:"snes_rtol"`
	SnesAtol            float64 `yaml:"snes_atol"`
	SnesConvergenceTest string  `yaml:"snes_convergence_test"`
	SnesLinesearchType  string  `yaml:"snes_linesearch_type"`

	KspType  string  `yaml:"ksp_type"`
	KspRtol  float64 `yaml:"ksp_rtol"`
	KspAtol  float64 `yaml:"ksp_atol"`
	KspMaxIt int     `yaml:"ksp_max_it"`

	MatType          string `yaml:"mat_type"`
	PcType           string `yaml:"pc_type"`
	PcMgType         string `yaml:"pc_mg_type"`
	MgLevelsKspType  string `yaml:"mg_levels_ksp_type"`
	MgLevelsKspMaxIt int    `yaml:"mg_levels_ksp_max_it"`
	MgLevelsPcType   string `yaml:"mg_levels_pc_type"`
	MgCoarsePcType   string `yaml:"mg_coarse_pc_type"`

	SnesFasType       string `yaml:"snes_fas_type"`
	FasLevelsKspMaxIt int    `yaml:"fas_levels_ksp_max_it"`
	FasCoarsePcType   string `yaml:"fas_coarse_pc_type"`

	NpcSnesType          string `yaml:"npc_snes_type"`
	NpcSnesFasType       string `yaml:"npc_snes_fas_type"`
	NpcFasLevelsKspMaxIt int    `yaml:"npc_fas_levels_ksp_max_it"`
	NpcSnesMaxIt         int    `yaml:"npc_snes_max_it"`
}

func (sp *SolverParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, sp)
}

func (sp *SolverParameters) Print() {
	fmt.Printf("[%s]\t\t= snes_type\n", sp.SnesType)
	fmt.Printf("[%s]\t\t= ksp_type\n", sp.KspType)
	fmt.Printf("[%s]\t\t= mat_type\n", sp.MatType)
	fmt.Printf("[%s]\t\t= pc_type\n", sp.PcType)
	if sp.PcType == "mg" {
		fmt.Printf("[%s]\t\t= pc_mg_type\n", sp.PcMgType)
		fmt.Printf("[%s]\t= mg_levels_ksp_type\n", sp.MgLevelsKspType)
		fmt.Printf("[%d]\t\t\t= mg_levels_ksp_max_it\n", sp.MgLevelsKspMaxIt)
	}
	if sp.SnesType == "fas" || sp.NpcSnesType == "fas" {
		fmt.Printf("[%s]\t\t= fas cycle type\n", sp.SnesFasType+sp.NpcSnesFasType)
	}
}

// Defaults returns the canonical parameter set for a named solver mode.
// The four modes exercise the solver stack in different combinations:
// "mg" and "mgmatfree" are linear multigrid with assembled and
// matrix-free operators, "fas" is nonlinear multigrid on its own, and
// "newtonfas" wraps FAS as the nonlinear preconditioner of a Newton
// iteration with an l2 linesearch.
func Defaults(solverType string) (sp *SolverParameters, err error) {
	switch solverType {
	case "mg":
		sp = &SolverParameters{
			SnesType:         "ksponly",
			KspType:          "preonly",
			MatType:          "aij",
			PcType:           "mg",
			PcMgType:         "full",
			MgLevelsKspType:  "chebyshev",
			MgLevelsKspMaxIt: 2,
			MgLevelsPcType:   "jacobi",
			MgCoarsePcType:   "lu",
		}
	case "mgmatfree":
		sp = &SolverParameters{
			SnesType:         "ksponly",
			KspType:          "preonly",
			MatType:          "matfree",
			PcType:           "mg",
			PcMgType:         "full",
			MgLevelsKspType:  "chebyshev",
			MgLevelsKspMaxIt: 2,
			MgLevelsPcType:   "jacobi",
			MgCoarsePcType:   "lu",
		}
	case "fas":
		sp = &SolverParameters{
			SnesType:            "fas",
			SnesFasType:         "full",
			SnesMaxIt:           1,
			SnesConvergenceTest: "skip",
			FasLevelsKspMaxIt:   3,
			FasCoarsePcType:     "lu",
		}
	case "newtonfas":
		sp = &SolverParameters{
			SnesType:             "newtonls",
			KspType:              "preonly",
			PcType:               "none",
			SnesLinesearchType:   "l2",
			SnesMaxIt:            1,
			SnesConvergenceTest:  "skip",
			NpcSnesType:          "fas",
			NpcSnesFasType:       "full",
			NpcFasLevelsKspMaxIt: 2,
			NpcSnesMaxIt:         1,
			FasCoarsePcType:      "lu",
		}
	default:
		err = fmt.Errorf("unknown parameter set '%s'", solverType)
	}
	return
}
