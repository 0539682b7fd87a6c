package flow

import (
	"strconv"
	"strings"
)

// Main menu option numbers. The order is part of the user contract: printed
// material references these numbers.
const (
	menuWeather      = 1
	menuInventory    = 2
	menuLivestock    = 3
	menuSimulation   = 4
	menuRegistration = 5
	menuPestAlerts   = 6
	menuMarket       = 7
	menuLocation     = 8
	menuOtherInfo    = 9
)

const welcomeText = "Hello! 🌱 I am the Campo Inteligente assistant. I can help you with weather, your records and crop planning."

// renderMainMenu is the single source of the top-level menu text.
func renderMainMenu() string {
	return strings.Join([]string{
		"What would you like to do?",
		"1️⃣ Weather forecast",
		"2️⃣ Inventory",
		"3️⃣ Livestock records",
		"4️⃣ Crop simulation",
		"5️⃣ My registration",
		"6️⃣ Pest alerts",
		"7️⃣ Market prices",
		"8️⃣ Set my location",
		"9️⃣ Other questions",
		"",
		"Reply with a number, or send \"menu\" at any time to come back here.",
	}, "\n")
}

// welcomeReply is sent on greetings and after an inactivity reset.
func welcomeReply() string {
	return welcomeText + "\n\n" + renderMainMenu()
}

// matchMenuChoice maps a top-level message to a menu option number, by exact
// number or by keyword. Returns 0 when nothing matches.
func matchMenuChoice(text string) int {
	v := strings.ToLower(strings.TrimSpace(text))
	if n, err := strconv.Atoi(v); err == nil && n >= menuWeather && n <= menuOtherInfo {
		return n
	}
	for _, kw := range menuKeywords {
		if containsWord(v, kw.word) {
			return kw.option
		}
	}
	return 0
}

// menuKeywords is scanned in order, so the first matching word decides the
// option when a message mentions more than one. Keep it sorted by option
// number.
var menuKeywords = []struct {
	word   string
	option int
}{
	{"weather", menuWeather},
	{"forecast", menuWeather},
	{"climate", menuWeather},
	{"inventory", menuInventory},
	{"stock", menuInventory},
	{"livestock", menuLivestock},
	{"animals", menuLivestock},
	{"simulation", menuSimulation},
	{"simulate", menuSimulation},
	{"yield", menuSimulation},
	{"registration", menuRegistration},
	{"register", menuRegistration},
	{"signup", menuRegistration},
	{"pest", menuPestAlerts},
	{"pests", menuPestAlerts},
	{"market", menuMarket},
	{"prices", menuMarket},
	{"location", menuLocation},
	{"question", menuOtherInfo},
	{"questions", menuOtherInfo},
	{"help", menuOtherInfo},
}

// isGlobalReset reports whether the message is a global navigation command
// that overrides any in-progress flow. "back" is intentionally absent: it is
// handled by the active executor as a single-level step back.
func isGlobalReset(text string) bool {
	v := strings.ToLower(strings.TrimSpace(text))
	if v == "menu" || v == "options" || v == "option" || v == "exit" || v == "cancel" {
		return true
	}
	return containsWord(v, "menu") || containsWord(v, "options")
}

// isBack reports whether the message is a single-level back command. Plain
// "0" is deliberately not accepted here: several wizard questions ("how many
// animals", unit price) take zero as a legitimate answer.
func isBack(text string) bool {
	return strings.ToLower(strings.TrimSpace(text)) == "back"
}

// isSubMenuBack accepts "back" plus the "0" shortcut printed by the section
// sub-menus ("0. Back to main menu"). Only menu screens use this.
func isSubMenuBack(text string) bool {
	return isBack(text) || strings.TrimSpace(text) == "0"
}

// isGreeting reports whether a top-level message is a salutation.
func isGreeting(text string) bool {
	v := strings.ToLower(strings.TrimSpace(text))
	for _, g := range []string{"hello", "hi", "hey", "good morning", "good afternoon", "good evening", "ola", "olá"} {
		if v == g || strings.HasPrefix(v, g+" ") || strings.HasPrefix(v, g+",") || strings.HasPrefix(v, g+"!") {
			return true
		}
	}
	return false
}
