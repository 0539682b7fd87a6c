package flow

import (
	"fmt"
	"strings"

	"github.com/campo-inteligente/campobot/internal/models"
)

// This file renders domain results into user-facing text. All rendering is
// deterministic so replies can be asserted in tests.

// FormatForecast renders the current weather for one city.
func FormatForecast(f models.Forecast) string {
	return fmt.Sprintf(
		"🌦️ Weather in %s: %s\n🌡️ Temperature: %.1f°C (feels like %.1f°C)\n💧 Humidity: %.0f%%\n💨 Wind: %.1f m/s",
		f.City, f.Description, f.Temperature, f.FeelsLike, f.Humidity, f.WindSpeed)
}

// formatExtendedForecast renders the multi-period forecast.
func formatExtendedForecast(city string, days []models.ForecastDay) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 Extended forecast for %s:", city)
	for _, d := range days {
		fmt.Fprintf(&b, "\n%s: %s, %.1f°C to %.1f°C", d.Date, d.Description, d.Min, d.Max)
	}
	return b.String()
}

// formatSimulationResult renders one completed simulation run.
func formatSimulationResult(run models.SimulationRun) string {
	return fmt.Sprintf(
		"🌾 Simulation result for %s\nArea: %.1f ha\nSoil: %s | Climate: %s | Cycle: %s\nEstimated yield: %.2f t/ha\nEstimated total: %.1f t",
		run.Crop, run.AreaHa, run.Soil, run.Climate, run.Cycle, run.YieldPerHa, run.TotalYield)
}

// formatSimulationList renders past simulations, newest last.
func formatSimulationList(runs []models.SimulationRun) string {
	if len(runs) == 0 {
		return "You have no past simulations yet. Send 1 to run your first one."
	}
	var b strings.Builder
	b.WriteString("📋 Your past simulations:")
	for i, r := range runs {
		fmt.Fprintf(&b, "\n%d. %s, %.1f ha, %s/%s/%s → %.1f t",
			i+1, r.Crop, r.AreaHa, r.Soil, r.Climate, r.Cycle, r.TotalYield)
	}
	return b.String()
}

// formatLivestockRecords renders the vaccination, deworming and animal lists.
func formatLivestockRecords(sessionCtx *models.Context) string {
	if len(sessionCtx.Animals) == 0 && len(sessionCtx.Vaccinations) == 0 && len(sessionCtx.Dewormings) == 0 {
		return "You have no livestock records yet."
	}
	var b strings.Builder
	b.WriteString("🐄 Your livestock records:")
	if len(sessionCtx.Animals) > 0 {
		b.WriteString("\n\nAnimals:")
		for _, a := range sessionCtx.Animals {
			fmt.Fprintf(&b, "\n• %s — %s (%s), born %s, %s kg", a.Tag, a.Species, a.Breed, a.BirthDate, a.Weight)
		}
	}
	if len(sessionCtx.Vaccinations) > 0 {
		b.WriteString("\n\nVaccinations:")
		for _, v := range sessionCtx.Vaccinations {
			fmt.Fprintf(&b, "\n• %s — %s on %s, next dose %s", v.AnimalTag, v.Vaccine, v.Date, v.NextDose)
		}
	}
	if len(sessionCtx.Dewormings) > 0 {
		b.WriteString("\n\nDewormings:")
		for _, d := range sessionCtx.Dewormings {
			fmt.Fprintf(&b, "\n• %s — %s (%s) on %s", d.AnimalTag, d.Product, d.Dose, d.Date)
		}
	}
	return b.String()
}

// formatStockList renders the stock movement history.
func formatStockList(movements []models.StockMovement) string {
	if len(movements) == 0 {
		return "Your inventory is empty. Send 1 to record a stock entry."
	}
	var b strings.Builder
	b.WriteString("📦 Your stock movements:")
	for _, m := range movements {
		arrow := "⬅️ in"
		if m.Direction == models.StockOut {
			arrow = "➡️ out"
		}
		fmt.Fprintf(&b, "\n• %s %s: %.1f %s of %s (%s)", arrow, m.RecordedAt.Format("02/01/2006"), m.Quantity, m.Unit, m.Item, m.Category)
	}
	return b.String()
}

// formatProfileSummary renders the registered profile for edit mode.
func formatProfileSummary(p *models.Profile) string {
	return fmt.Sprintf(
		"👤 %s\nCPF: %s | Born: %s\n📍 %s, %s — %s/%s\n🏡 %s, %s ha, %s",
		p.FullName, p.CPF, p.BirthDate, p.Street, p.District, p.City, p.State,
		p.PropertyName, p.PropertyArea, p.ProductionType)
}

const pestAlertText = "🐛 Pest alerts for this season:\n" +
	"• Fall armyworm: scout corn fields weekly, especially young plants.\n" +
	"• Asian soybean rust: watch for yellow leaf spots after humid spells.\n" +
	"• Whitefly: check the underside of leaves in vegetable plots.\n" +
	"Contact your local rural extension office for treatment guidance."

const marketText = "💰 Market reference prices (per 60 kg bag, indicative):\n" +
	"• Corn: R$ 58–65\n" +
	"• Soybean: R$ 125–135\n" +
	"• Beans: R$ 230–260\n" +
	"• Rice: R$ 95–110\n" +
	"Prices vary by region; confirm with your cooperative before selling."
