package flow

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/campo-inteligente/campobot/internal/models"
)

// Livestock sub-flow modes.
const (
	livestockVaccination = "vaccination"
	livestockDeworming   = "deworming"
	livestockAnimal      = "animal"
)

func renderLivestockMenu() string {
	return strings.Join([]string{
		"🐄 Livestock records — choose an option:",
		"1. Register a vaccination",
		"2. Register a deworming",
		"3. Register an animal",
		"4. View records",
		"5. Export report",
		"0. Back to main menu",
	}, "\n")
}

var vaccinationPrompts = []string{
	1: "Which animal? Send its tag or ear-tag number.",
	2: "Which vaccine was applied?",
	3: "On which date? (DD/MM/YYYY)",
	4: "When is the next dose due? (DD/MM/YYYY)",
}

var dewormingPrompts = []string{
	1: "Which animal? Send its tag or ear-tag number.",
	2: "Which product was used?",
	3: "What dose was applied? (e.g. 10 ml)",
	4: "On which date? (DD/MM/YYYY)",
}

var animalPrompts = []string{
	1: "What tag or ear-tag number will identify the animal?",
	2: "What species? (e.g. cattle, goat, sheep)",
	3: "What breed?",
	4: "Birth date? (DD/MM/YYYY)",
	5: "Current weight in kg?",
}

// startLivestock enters the livestock section at its sub-menu.
func (e *Engine) startLivestock(sessionCtx *models.Context) []string {
	sessionCtx.Flow = models.ActiveFlow{Type: models.FlowLivestock, Livestock: &models.LivestockState{}}
	return []string{renderLivestockMenu()}
}

// handleLivestock consumes one message while the livestock flow is active.
func (e *Engine) handleLivestock(sessionCtx *models.Context, text string) []string {
	st := sessionCtx.Flow.Livestock
	if st.Mode == "" {
		return e.handleLivestockMenu(sessionCtx, text)
	}
	return e.handleLivestockStep(sessionCtx, text)
}

func (e *Engine) handleLivestockMenu(sessionCtx *models.Context, text string) []string {
	st := sessionCtx.Flow.Livestock
	if isSubMenuBack(text) {
		sessionCtx.ResetFlows()
		return []string{renderMainMenu()}
	}
	switch strings.TrimSpace(text) {
	case "1":
		st.Mode = livestockVaccination
		st.Step = 1
		st.Vaccination = models.Vaccination{}
		return []string{vaccinationPrompts[1]}
	case "2":
		st.Mode = livestockDeworming
		st.Step = 1
		st.Deworming = models.Deworming{}
		return []string{dewormingPrompts[1]}
	case "3":
		st.Mode = livestockAnimal
		st.Step = 1
		st.Animal = models.AnimalRecord{}
		return []string{animalPrompts[1]}
	case "4":
		return []string{formatLivestockRecords(sessionCtx)}
	case "5":
		return []string{e.exportLivestockReport(sessionCtx)}
	}
	return []string{"⚠️ I did not understand that option.\n\n" + renderLivestockMenu()}
}

// livestockPrompts returns the prompt table for the active mode.
func livestockPrompts(mode string) []string {
	switch mode {
	case livestockVaccination:
		return vaccinationPrompts
	case livestockDeworming:
		return dewormingPrompts
	default:
		return animalPrompts
	}
}

func (e *Engine) handleLivestockStep(sessionCtx *models.Context, text string) []string {
	st := sessionCtx.Flow.Livestock
	prompts := livestockPrompts(st.Mode)

	if isBack(text) {
		st.Step--
		if st.Step < 1 {
			st.Mode = ""
			st.Step = 0
			return []string{renderLivestockMenu()}
		}
		return []string{prompts[st.Step]}
	}

	value, err := e.validateLivestockAnswer(st, text)
	if err != nil {
		return []string{"⚠️ " + err.Error() + "\n" + prompts[st.Step]}
	}
	e.storeLivestockAnswer(st, value)

	if st.Step == len(prompts)-1 {
		return e.completeLivestockEntry(sessionCtx)
	}
	st.Step++
	return []string{prompts[st.Step]}
}

// validateLivestockAnswer applies the step's validator for the active mode.
func (e *Engine) validateLivestockAnswer(st *models.LivestockState, text string) (string, error) {
	switch st.Mode {
	case livestockVaccination:
		if st.Step >= 3 {
			return validateDate(text)
		}
	case livestockDeworming:
		if st.Step == 4 {
			return validateDate(text)
		}
	case livestockAnimal:
		if st.Step == 4 {
			return validateDate(text)
		}
		if st.Step == 5 {
			return validateDecimal(text)
		}
	}
	return validateNonEmpty(text)
}

// storeLivestockAnswer writes the validated value into the draft buffer.
func (e *Engine) storeLivestockAnswer(st *models.LivestockState, value string) {
	switch st.Mode {
	case livestockVaccination:
		switch st.Step {
		case 1:
			st.Vaccination.AnimalTag = value
		case 2:
			st.Vaccination.Vaccine = value
		case 3:
			st.Vaccination.Date = value
		case 4:
			st.Vaccination.NextDose = value
		}
	case livestockDeworming:
		switch st.Step {
		case 1:
			st.Deworming.AnimalTag = value
		case 2:
			st.Deworming.Product = value
		case 3:
			st.Deworming.Dose = value
		case 4:
			st.Deworming.Date = value
		}
	case livestockAnimal:
		switch st.Step {
		case 1:
			st.Animal.Tag = value
		case 2:
			st.Animal.Species = value
		case 3:
			st.Animal.Breed = value
		case 4:
			st.Animal.BirthDate = value
		case 5:
			st.Animal.Weight = value
		}
	}
}

// completeLivestockEntry appends the finished record, confirms, and sets the
// continue gate.
func (e *Engine) completeLivestockEntry(sessionCtx *models.Context) []string {
	st := sessionCtx.Flow.Livestock
	var confirmation string
	switch st.Mode {
	case livestockVaccination:
		rec := st.Vaccination
		rec.RecordedAt = e.now()
		sessionCtx.Vaccinations = append(sessionCtx.Vaccinations, rec)
		confirmation = fmt.Sprintf("✅ Vaccination recorded: %s for animal %s on %s.", rec.Vaccine, rec.AnimalTag, rec.Date)
	case livestockDeworming:
		rec := st.Deworming
		rec.RecordedAt = e.now()
		sessionCtx.Dewormings = append(sessionCtx.Dewormings, rec)
		confirmation = fmt.Sprintf("✅ Deworming recorded: %s (%s) for animal %s on %s.", rec.Product, rec.Dose, rec.AnimalTag, rec.Date)
	case livestockAnimal:
		rec := st.Animal
		rec.RecordedAt = e.now()
		sessionCtx.Animals = append(sessionCtx.Animals, rec)
		confirmation = fmt.Sprintf("✅ Animal %s (%s, %s) registered.", rec.Tag, rec.Species, rec.Breed)
	}

	sessionCtx.ResetFlows()
	sessionCtx.AwaitingContinueChoice = true
	sessionCtx.ContinueSection = models.FlowLivestock

	slog.Info("Engine livestock entry completed", "userID", sessionCtx.UserID, "mode", st.Mode)
	return []string{confirmation + "\n\nWould you like to record something else in livestock? (yes/no)"}
}

// exportLivestockReport writes all livestock records to a spreadsheet.
func (e *Engine) exportLivestockReport(sessionCtx *models.Context) string {
	if len(sessionCtx.Animals) == 0 && len(sessionCtx.Vaccinations) == 0 && len(sessionCtx.Dewormings) == 0 {
		return "You have no livestock records to export yet."
	}
	headers := []string{"Type", "Animal", "Detail", "Dose/Next", "Date"}
	var rows [][]interface{}
	for _, a := range sessionCtx.Animals {
		rows = append(rows, []interface{}{"animal", a.Tag, a.Species + " / " + a.Breed, a.Weight + " kg", a.BirthDate})
	}
	for _, v := range sessionCtx.Vaccinations {
		rows = append(rows, []interface{}{"vaccination", v.AnimalTag, v.Vaccine, v.NextDose, v.Date})
	}
	for _, d := range sessionCtx.Dewormings {
		rows = append(rows, []interface{}{"deworming", d.AnimalTag, d.Product, d.Dose, d.Date})
	}
	file, err := e.exporter.ExportReport("livestock", headers, rows)
	if err != nil {
		slog.Error("Engine livestock report export failed", "error", err, "userID", sessionCtx.UserID)
		return "😕 Sorry, I could not generate the report right now. Please try again later."
	}
	return fmt.Sprintf("📄 Report ready: %s", file)
}
