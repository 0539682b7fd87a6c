package flow

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/campo-inteligente/campobot/internal/models"
)

// Crop base yield rates in tonnes per hectare. Unknown crops fall back to
// defaultYieldRate.
var cropYieldRates = map[string]float64{
	"corn":    5.5,
	"maize":   5.5,
	"soybean": 3.4,
	"soy":     3.4,
	"wheat":   2.8,
	"rice":    4.6,
	"beans":   1.8,
	"cotton":  4.2,
	"cassava": 14.0,
}

const defaultYieldRate = 3.0

// factor pairs a keyword with its multiplicative yield adjustment. The
// tables below are scanned in order, so when an answer mentions several
// keywords ("dry and stable") the earlier entry wins. Severe conditions
// come first.
type factor struct {
	keyword string
	value   float64
}

var soilFactors = []factor{
	{"rocky", 0.80},
	{"sandy", 0.90},
	{"clay", 1.05},
	{"loam", 1.10},
}

var climateFactors = []factor{
	{"frost", 0.65},
	{"drought", 0.70},
	{"dry", 0.85},
	{"rainy", 1.05},
	{"normal", 1.00},
	{"stable", 1.00},
}

var cycleFactors = []factor{
	{"short", 0.95},
	{"medium", 1.00},
	{"long", 1.08},
}

// EstimateYield computes the deterministic yield estimate for the collected
// answers. It is a pure function: the same answers always produce the same
// result.
func EstimateYield(crop string, areaHa float64, soil, climate, cycle string) (yieldPerHa, total float64) {
	rate := defaultYieldRate
	if r, ok := cropYieldRates[strings.ToLower(strings.TrimSpace(crop))]; ok {
		rate = r
	}
	rate *= keywordFactor(soil, soilFactors)
	rate *= keywordFactor(climate, climateFactors)
	rate *= keywordFactor(cycle, cycleFactors)
	return rate, rate * areaHa
}

// keywordFactor returns the adjustment of the first table entry whose keyword
// appears in the answer, or 1.0 when none matches.
func keywordFactor(answer string, factors []factor) float64 {
	v := strings.ToLower(answer)
	for _, f := range factors {
		if strings.Contains(v, f.keyword) {
			return f.value
		}
	}
	return 1.0
}

// Simulation sub-menu text.
func renderSimulationMenu() string {
	return strings.Join([]string{
		"🌾 Crop simulation — choose an option:",
		"1. New simulation",
		"2. View past simulations",
		"3. Export report",
		"0. Back to main menu",
	}, "\n")
}

// simulationPrompts are the ordered data entry questions, 1-based.
var simulationPrompts = []string{
	1: "Which crop do you want to simulate?",
	2: "What is the planted area, in hectares?",
	3: "What is the soil type? (e.g. clay, sandy, loam)",
	4: "What is the climate outlook for the season? (e.g. normal, rainy, drought)",
	5: "What is the crop cycle? (short, medium or long)",
}

// startSimulation enters the simulation section at its sub-menu.
func (e *Engine) startSimulation(sessionCtx *models.Context) []string {
	sessionCtx.Flow = models.ActiveFlow{Type: models.FlowSimulation, Simulation: &models.SimulationState{}}
	return []string{renderSimulationMenu()}
}

// handleSimulation consumes one message while the simulation flow is active.
func (e *Engine) handleSimulation(sessionCtx *models.Context, text string) []string {
	st := sessionCtx.Flow.Simulation
	if st.Mode == "" {
		return e.handleSimulationMenu(sessionCtx, text)
	}
	return e.handleSimulationStep(sessionCtx, text)
}

func (e *Engine) handleSimulationMenu(sessionCtx *models.Context, text string) []string {
	st := sessionCtx.Flow.Simulation
	if isSubMenuBack(text) {
		sessionCtx.ResetFlows()
		return []string{renderMainMenu()}
	}
	switch strings.TrimSpace(text) {
	case "1":
		st.Mode = "new"
		st.Step = 1
		st.Draft = models.SimulationRun{}
		return []string{simulationPrompts[1]}
	case "2":
		return []string{formatSimulationList(sessionCtx.Simulations)}
	case "3":
		return []string{e.exportSimulationReport(sessionCtx)}
	}
	return []string{"⚠️ I did not understand that option.\n\n" + renderSimulationMenu()}
}

func (e *Engine) handleSimulationStep(sessionCtx *models.Context, text string) []string {
	st := sessionCtx.Flow.Simulation
	if isBack(text) {
		st.Step--
		if st.Step < 1 {
			st.Mode = ""
			st.Step = 0
			return []string{renderSimulationMenu()}
		}
		return []string{simulationPrompts[st.Step]}
	}

	switch st.Step {
	case 1:
		crop, err := validateNonEmpty(text)
		if err != nil {
			return []string{"⚠️ " + err.Error() + "\n" + simulationPrompts[1]}
		}
		st.Draft.Crop = crop
	case 2:
		area, err := validateDecimal(text)
		if err != nil {
			return []string{"⚠️ " + err.Error() + "\n" + simulationPrompts[2]}
		}
		st.Draft.AreaHa, _ = strconv.ParseFloat(area, 64)
	case 3:
		soil, err := validateNonEmpty(text)
		if err != nil {
			return []string{"⚠️ " + err.Error() + "\n" + simulationPrompts[3]}
		}
		st.Draft.Soil = soil
	case 4:
		climate, err := validateNonEmpty(text)
		if err != nil {
			return []string{"⚠️ " + err.Error() + "\n" + simulationPrompts[4]}
		}
		st.Draft.Climate = climate
	case 5:
		cycle, err := validateNonEmpty(text)
		if err != nil {
			return []string{"⚠️ " + err.Error() + "\n" + simulationPrompts[5]}
		}
		st.Draft.Cycle = cycle
		return e.completeSimulation(sessionCtx)
	}

	st.Step++
	return []string{simulationPrompts[st.Step]}
}

// completeSimulation computes the result, appends the run and emits the
// documented two-reply turn: progress notice, then the result.
func (e *Engine) completeSimulation(sessionCtx *models.Context) []string {
	run := sessionCtx.Flow.Simulation.Draft
	run.YieldPerHa, run.TotalYield = EstimateYield(run.Crop, run.AreaHa, run.Soil, run.Climate, run.Cycle)
	run.RecordedAt = e.now()
	sessionCtx.Simulations = append(sessionCtx.Simulations, run)

	sessionCtx.ResetFlows()
	sessionCtx.AwaitingContinueChoice = true
	sessionCtx.ContinueSection = models.FlowSimulation

	slog.Info("Engine simulation completed", "userID", sessionCtx.UserID, "crop", run.Crop, "total_yield", run.TotalYield)
	return []string{
		"⏳ Running your simulation...",
		formatSimulationResult(run) + "\n\nWould you like to run another simulation? (yes/no)",
	}
}

// exportSimulationReport writes past runs to a spreadsheet.
func (e *Engine) exportSimulationReport(sessionCtx *models.Context) string {
	if len(sessionCtx.Simulations) == 0 {
		return "You have no simulations to export yet."
	}
	headers := []string{"Crop", "Area (ha)", "Soil", "Climate", "Cycle", "Yield (t/ha)", "Total (t)", "Date"}
	var rows [][]interface{}
	for _, r := range sessionCtx.Simulations {
		rows = append(rows, []interface{}{
			r.Crop, r.AreaHa, r.Soil, r.Climate, r.Cycle, r.YieldPerHa, r.TotalYield,
			r.RecordedAt.Format("02/01/2006"),
		})
	}
	file, err := e.exporter.ExportReport("simulations", headers, rows)
	if err != nil {
		slog.Error("Engine simulation report export failed", "error", err, "userID", sessionCtx.UserID)
		return "😕 Sorry, I could not generate the report right now. Please try again later."
	}
	return fmt.Sprintf("📄 Report ready: %s", file)
}
