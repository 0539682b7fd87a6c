package flow

import (
	"strings"

	"github.com/campo-inteligente/campobot/internal/models"
)

// Field describes one question of the registration wizard: its prompt, its
// validator, and the typed Profile slot it reads and writes. Optional fields
// are preceded by a synthetic yes/no gate before the value is asked.
type Field struct {
	Key        string
	Prompt     string
	Optional   bool
	GatePrompt string
	Validate   func(string) (string, error)
	Get        func(*models.Profile) string
	Set        func(*models.Profile, string)
}

// registrationFields is the ordered registration definition. The engine asks
// the first field whose slot is still empty, so answers captured elsewhere
// (e.g. the city from a location share) are never asked again.
var registrationFields = []Field{
	{
		Key:      "full_name",
		Prompt:   "What is your full name?",
		Validate: validateNonEmpty,
		Get:      func(p *models.Profile) string { return p.FullName },
		Set:      func(p *models.Profile, v string) { p.FullName = v },
	},
	{
		Key:      "cpf",
		Prompt:   "What is your CPF? (numbers only)",
		Validate: validateCPF,
		Get:      func(p *models.Profile) string { return p.CPF },
		Set:      func(p *models.Profile, v string) { p.CPF = v },
	},
	{
		Key:      "birth_date",
		Prompt:   "What is your birth date? (DD/MM/YYYY)",
		Validate: validateDate,
		Get:      func(p *models.Profile) string { return p.BirthDate },
		Set:      func(p *models.Profile, v string) { p.BirthDate = v },
	},
	{
		Key:      "gender",
		Prompt:   "What is your gender?\n1. female\n2. male\n3. other",
		Validate: validateChoice("female", "male", "other"),
		Get:      func(p *models.Profile) string { return p.Gender },
		Set:      func(p *models.Profile, v string) { p.Gender = v },
	},
	{
		Key:      "marital_status",
		Prompt:   "What is your marital status?\n1. single\n2. married\n3. divorced\n4. widowed",
		Validate: validateChoice("single", "married", "divorced", "widowed"),
		Get:      func(p *models.Profile) string { return p.MaritalStatus },
		Set:      func(p *models.Profile, v string) { p.MaritalStatus = v },
	},
	{
		Key:      "phone",
		Prompt:   "What is your contact phone number, with area code?",
		Validate: validatePhone,
		Get:      func(p *models.Profile) string { return p.Phone },
		Set:      func(p *models.Profile, v string) { p.Phone = v },
	},
	{
		Key:      "street",
		Prompt:   "Now your address. What is the street or road?",
		Validate: validateNonEmpty,
		Get:      func(p *models.Profile) string { return p.Street },
		Set:      func(p *models.Profile, v string) { p.Street = v },
	},
	{
		Key:      "number",
		Prompt:   "House or property number? (send s/n if there is none)",
		Validate: validateNonEmpty,
		Get:      func(p *models.Profile) string { return p.Number },
		Set:      func(p *models.Profile, v string) { p.Number = v },
	},
	{
		Key:      "district",
		Prompt:   "Which district or community?",
		Validate: validateNonEmpty,
		Get:      func(p *models.Profile) string { return p.District },
		Set:      func(p *models.Profile, v string) { p.District = v },
	},
	{
		Key:      "city",
		Prompt:   "Which city?",
		Validate: validateNonEmpty,
		Get:      func(p *models.Profile) string { return p.City },
		Set:      func(p *models.Profile, v string) { p.City = v },
	},
	{
		Key:      "state",
		Prompt:   "Which state? (two-letter code, e.g. BA)",
		Validate: validateState,
		Get:      func(p *models.Profile) string { return p.State },
		Set:      func(p *models.Profile, v string) { p.State = v },
	},
	{
		Key:      "postal_code",
		Prompt:   "What is the postal code (CEP)?",
		Validate: validatePostalCode,
		Get:      func(p *models.Profile) string { return p.PostalCode },
		Set:      func(p *models.Profile, v string) { p.PostalCode = v },
	},
	{
		Key:      "property_name",
		Prompt:   "About your production now. What is the name of your property or farm?",
		Validate: validateNonEmpty,
		Get:      func(p *models.Profile) string { return p.PropertyName },
		Set:      func(p *models.Profile, v string) { p.PropertyName = v },
	},
	{
		Key:      "property_area",
		Prompt:   "What is the property area, in hectares?",
		Validate: validateDecimal,
		Get:      func(p *models.Profile) string { return p.PropertyArea },
		Set:      func(p *models.Profile, v string) { p.PropertyArea = v },
	},
	{
		Key:      "production_type",
		Prompt:   "What do you produce?\n1. crops\n2. livestock\n3. mixed",
		Validate: validateChoice("crops", "livestock", "mixed"),
		Get:      func(p *models.Profile) string { return p.ProductionType },
		Set:      func(p *models.Profile, v string) { p.ProductionType = v },
	},
	{
		Key:      "main_crops",
		Prompt:   "Which are your main crops or products?",
		Validate: validateNonEmpty,
		Get:      func(p *models.Profile) string { return p.MainCrops },
		Set:      func(p *models.Profile, v string) { p.MainCrops = v },
	},
	{
		Key:      "herd_size",
		Prompt:   "How many animals do you keep? (send 0 if none)",
		Validate: validateInteger,
		Get:      func(p *models.Profile) string { return p.HerdSize },
		Set:      func(p *models.Profile, v string) { p.HerdSize = v },
	},
	{
		Key:      "irrigation_type",
		Prompt:   "What irrigation do you use?\n1. none\n2. drip\n3. sprinkler\n4. pivot",
		Validate: validateChoice("none", "drip", "sprinkler", "pivot"),
		Get:      func(p *models.Profile) string { return p.IrrigationType },
		Set:      func(p *models.Profile, v string) { p.IrrigationType = v },
	},
	{
		Key:      "workforce_size",
		Prompt:   "How many people work on the property, including you?",
		Validate: validateInteger,
		Get:      func(p *models.Profile) string { return p.WorkforceSize },
		Set:      func(p *models.Profile, v string) { p.WorkforceSize = v },
	},
	{
		Key:        "email",
		Prompt:     "What is your email address?",
		Optional:   true,
		GatePrompt: "Would you like to register an email address? (yes/no)",
		Validate:   validateEmail,
		Get:        func(p *models.Profile) string { return p.Email },
		Set:        func(p *models.Profile, v string) { p.Email = v },
	},
	{
		Key:        "rural_registry",
		Prompt:     "What is your rural property registry (CAR) number?",
		Optional:   true,
		GatePrompt: "Do you have a rural property registry (CAR) number to add? (yes/no)",
		Validate:   validateNonEmpty,
		Get:        func(p *models.Profile) string { return p.RuralRegistry },
		Set:        func(p *models.Profile, v string) { p.RuralRegistry = v },
	},
}

// editSynonyms maps the words users type in edit mode to field keys. The
// table is scanned in order, grouped by wizard field, so when a message
// mentions two fields ("my phone number") the earlier field wins.
var editSynonyms = []struct {
	word string
	key  string
}{
	{"name", "full_name"},
	{"full name", "full_name"},
	{"cpf", "cpf"},
	{"document", "cpf"},
	{"birth", "birth_date"},
	{"birth date", "birth_date"},
	{"birthday", "birth_date"},
	{"gender", "gender"},
	{"marital", "marital_status"},
	{"marital status", "marital_status"},
	{"phone", "phone"},
	{"telephone", "phone"},
	{"contact", "phone"},
	{"street", "street"},
	{"road", "street"},
	{"number", "number"},
	{"district", "district"},
	{"community", "district"},
	{"city", "city"},
	{"town", "city"},
	{"state", "state"},
	{"cep", "postal_code"},
	{"postal code", "postal_code"},
	{"zip", "postal_code"},
	{"property", "property_name"},
	{"farm", "property_name"},
	{"area", "property_area"},
	{"hectares", "property_area"},
	{"production", "production_type"},
	{"crops", "main_crops"},
	{"herd", "herd_size"},
	{"animals", "herd_size"},
	{"irrigation", "irrigation_type"},
	{"workforce", "workforce_size"},
	{"workers", "workforce_size"},
	{"email", "email"},
	{"car", "rural_registry"},
	{"registry", "rural_registry"},
}

// fieldByKey returns the registration field with the given key.
func fieldByKey(key string) (Field, bool) {
	for _, f := range registrationFields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// matchEditField resolves the free-text field name a user typed in edit mode
// against the synonym table.
func matchEditField(input string) (Field, bool) {
	v := strings.ToLower(strings.TrimSpace(input))
	for _, syn := range editSynonyms {
		if v == syn.word {
			return fieldByKey(syn.key)
		}
	}
	// Fall back to a word-level scan so "my phone number" still matches.
	for _, syn := range editSynonyms {
		if !strings.Contains(syn.word, " ") && containsWord(v, syn.word) {
			return fieldByKey(syn.key)
		}
	}
	return Field{}, false
}

// nextUnansweredField scans the ordered definition from index from and
// returns the index of the first field whose slot is empty, or -1 when the
// registration is complete.
func nextUnansweredField(p *models.Profile, from int) int {
	for i := from; i < len(registrationFields); i++ {
		if registrationFields[i].Get(p) == "" {
			return i
		}
	}
	return -1
}

// containsWord reports whether text contains word as a whole token.
func containsWord(text, word string) bool {
	for _, tok := range strings.Fields(text) {
		if strings.Trim(tok, ".,!?") == word {
			return true
		}
	}
	return false
}
