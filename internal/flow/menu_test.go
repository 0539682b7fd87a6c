package flow

import "testing"

func TestMatchMenuChoice(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{input: "1", want: menuWeather},
		{input: " 9 ", want: menuOtherInfo},
		{input: "weather", want: menuWeather},
		{input: "what is the forecast", want: menuWeather},
		{input: "stock", want: menuInventory},
		{input: "my animals", want: menuLivestock},
		{input: "I want to simulate", want: menuSimulation},
		{input: "yield", want: menuSimulation},
		{input: "register", want: menuRegistration},
		{input: "pests", want: menuPestAlerts},
		{input: "market prices", want: menuMarket},
		{input: "location", want: menuLocation},
		{input: "help", want: menuOtherInfo},
		// Two keywords in one message: the earlier table entry decides.
		{input: "weather for my livestock", want: menuWeather},
		{input: "0", want: 0},
		{input: "10", want: 0},
		{input: "purple elephants", want: 0},
		{input: "", want: 0},
	}
	for _, tt := range tests {
		if got := matchMenuChoice(tt.input); got != tt.want {
			t.Errorf("matchMenuChoice(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestIsGlobalReset(t *testing.T) {
	for _, input := range []string{"menu", "MENU", " menu ", "options", "option", "exit", "cancel", "show me the menu"} {
		if !isGlobalReset(input) {
			t.Errorf("isGlobalReset(%q) = false, want true", input)
		}
	}
	for _, input := range []string{"back", "0", "menus are nice", "1", "hello", ""} {
		if isGlobalReset(input) {
			t.Errorf("isGlobalReset(%q) = true, want false", input)
		}
	}
}

func TestIsBack(t *testing.T) {
	for _, input := range []string{"back", "BACK", " back "} {
		if !isBack(input) {
			t.Errorf("isBack(%q) = false, want true", input)
		}
	}
	// "0" is a real answer to numeric wizard questions, never a step back.
	for _, input := range []string{"0", " 0 ", "go back home", "00", "menu", ""} {
		if isBack(input) {
			t.Errorf("isBack(%q) = true, want false", input)
		}
	}
}

func TestIsSubMenuBack(t *testing.T) {
	for _, input := range []string{"back", "0", " 0 "} {
		if !isSubMenuBack(input) {
			t.Errorf("isSubMenuBack(%q) = false, want true", input)
		}
	}
	for _, input := range []string{"00", "menu", "1", ""} {
		if isSubMenuBack(input) {
			t.Errorf("isSubMenuBack(%q) = true, want false", input)
		}
	}
}

func TestMatchMenuChoiceStableOnAmbiguousInput(t *testing.T) {
	for i := 0; i < 200; i++ {
		if got := matchMenuChoice("weather for my livestock"); got != menuWeather {
			t.Fatalf("matchMenuChoice = %d on run %d, want %d every time", got, i, menuWeather)
		}
	}
}

func TestIsGreeting(t *testing.T) {
	for _, input := range []string{"hello", "Hi", "hey there", "good morning", "Olá", "hello, bot", "hi!"} {
		if !isGreeting(input) {
			t.Errorf("isGreeting(%q) = false, want true", input)
		}
	}
	for _, input := range []string{"hilltop", "goodbye", "1", "menu", ""} {
		if isGreeting(input) {
			t.Errorf("isGreeting(%q) = true, want false", input)
		}
	}
}

func TestContainsWord(t *testing.T) {
	if !containsWord("show me the menu, please", "menu") {
		t.Error("menu with trailing comma not matched")
	}
	if containsWord("menus are nice", "menu") {
		t.Error("menu matched inside a longer word")
	}
}
