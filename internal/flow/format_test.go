package flow

import (
	"strings"
	"testing"

	"github.com/campo-inteligente/campobot/internal/models"
)

func TestFormatForecast(t *testing.T) {
	got := FormatForecast(models.Forecast{
		City:        "Itabuna",
		Description: "scattered clouds",
		Temperature: 27.4,
		FeelsLike:   29.1,
		Humidity:    78,
		WindSpeed:   3.6,
	})
	for _, want := range []string{
		"Weather in Itabuna: scattered clouds",
		"Temperature: 27.4°C (feels like 29.1°C)",
		"Humidity: 78%",
		"Wind: 3.6 m/s",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("forecast %q does not contain %q", got, want)
		}
	}
}

func TestFormatProfileSummary(t *testing.T) {
	p := registeredContext("x").Profile
	got := formatProfileSummary(&p)
	for _, want := range []string{"Maria dos Santos", "52998224725", "Itabuna", "BA", "Sítio Esperança", "12.5 ha"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary %q does not contain %q", got, want)
		}
	}
}
