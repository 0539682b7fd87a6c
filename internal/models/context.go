// Package models defines session state structures for CampoBot dialogues.
package models

import "time"

// NotProvided is the sentinel stored for optional registration fields the
// user declined to answer.
const NotProvided = "not provided"

// FlowType identifies which top-level conversational task owns the current
// turn. At most one flow is active at a time.
type FlowType string

const (
	// FlowNone means the user is at the main menu.
	FlowNone FlowType = ""
	// FlowRegistration is the producer registration wizard (and edit mode).
	FlowRegistration FlowType = "registration"
	// FlowWeather is the weather lookup flow.
	FlowWeather FlowType = "weather"
	// FlowSimulation is the crop yield simulation flow.
	FlowSimulation FlowType = "simulation"
	// FlowLivestock is the livestock record-keeping flow.
	FlowLivestock FlowType = "livestock"
	// FlowInventory is the stock tracking flow.
	FlowInventory FlowType = "inventory"
	// FlowQuestion is the open-ended question flow answered by GenAI.
	FlowQuestion FlowType = "question"
)

// ActiveFlow is a tagged union of per-flow states. Type names the active
// flow; exactly the matching state pointer is non-nil while that flow is
// active. Clearing a flow replaces the whole value with the zero ActiveFlow,
// so step counters, buffers and awaiting gates can never outlive their flow.
type ActiveFlow struct {
	Type         FlowType           `json:"type,omitempty"`
	Registration *RegistrationState `json:"registration,omitempty"`
	Weather      *WeatherState      `json:"weather,omitempty"`
	Simulation   *SimulationState   `json:"simulation,omitempty"`
	Livestock    *LivestockState    `json:"livestock,omitempty"`
	Inventory    *InventoryState    `json:"inventory,omitempty"`
}

// RegistrationState tracks the registration wizard position.
type RegistrationState struct {
	// FieldIndex is the index of the field currently prompted in the
	// ordered registration definition.
	FieldIndex int `json:"field_index"`
	// AwaitingOptIn gates an optional field behind a yes/no question.
	AwaitingOptIn bool `json:"awaiting_opt_in,omitempty"`
	// AwaitingValue is set after an optional field was accepted and its
	// value is expected next turn.
	AwaitingValue bool `json:"awaiting_value,omitempty"`
	// Editing marks edit mode for already registered users.
	Editing bool `json:"editing,omitempty"`
	// EditField is the profile field key being edited, empty while the
	// engine is waiting for the user to name a field.
	EditField string `json:"edit_field,omitempty"`
}

// WeatherState tracks the weather flow position.
type WeatherState struct {
	// AwaitingCity is set while the engine waits for a city name.
	AwaitingCity bool `json:"awaiting_city,omitempty"`
	// SetOnly means the user is updating their stored location without a
	// forecast lookup (main menu "set my location").
	SetOnly bool `json:"set_only,omitempty"`
	// City is the resolved city for follow-up actions (extended forecast,
	// daily bulletin) inside the weather menu.
	City string `json:"city,omitempty"`
}

// SimulationState tracks the crop simulation flow position.
type SimulationState struct {
	// Mode is "" at the section sub-menu or "new" inside the data entry
	// step sequence.
	Mode string `json:"mode,omitempty"`
	// Step is the 1-based question number while Mode is "new".
	Step int `json:"step,omitempty"`
	// Draft buffers the answers collected so far.
	Draft SimulationRun `json:"draft,omitempty"`
}

// LivestockState tracks the livestock flow position.
type LivestockState struct {
	// Mode is "" at the section sub-menu, or one of "vaccination",
	// "deworming", "animal" inside a step sequence.
	Mode string `json:"mode,omitempty"`
	// Step is the 1-based question number while a mode is active.
	Step int `json:"step,omitempty"`

	Vaccination Vaccination  `json:"vaccination,omitempty"`
	Deworming   Deworming    `json:"deworming,omitempty"`
	Animal      AnimalRecord `json:"animal,omitempty"`
}

// InventoryState tracks the inventory flow position.
type InventoryState struct {
	// Mode is "" at the section sub-menu, "in" or "out" inside the entry
	// step sequence.
	Mode string `json:"mode,omitempty"`
	// Step is the 1-based question number while a mode is active.
	Step int `json:"step,omitempty"`
	// Draft buffers the movement being entered.
	Draft StockMovement `json:"draft,omitempty"`
}

// Profile holds the registration answers as one named slot per field so the
// mandatory set is checkable at compile time. Optional fields declined by the
// user hold the NotProvided sentinel.
type Profile struct {
	FullName       string `json:"full_name,omitempty"`
	CPF            string `json:"cpf,omitempty"`
	BirthDate      string `json:"birth_date,omitempty"`
	Gender         string `json:"gender,omitempty"`
	MaritalStatus  string `json:"marital_status,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Street         string `json:"street,omitempty"`
	Number         string `json:"number,omitempty"`
	District       string `json:"district,omitempty"`
	City           string `json:"city,omitempty"`
	State          string `json:"state,omitempty"`
	PostalCode     string `json:"postal_code,omitempty"`
	PropertyName   string `json:"property_name,omitempty"`
	PropertyArea   string `json:"property_area,omitempty"`
	ProductionType string `json:"production_type,omitempty"`
	MainCrops      string `json:"main_crops,omitempty"`
	HerdSize       string `json:"herd_size,omitempty"`
	IrrigationType string `json:"irrigation_type,omitempty"`
	WorkforceSize  string `json:"workforce_size,omitempty"`

	// Optional, gated behind a yes/no prompt during registration.
	Email         string `json:"email,omitempty"`
	RuralRegistry string `json:"rural_registry,omitempty"`
}

// Vaccination is one vaccination record for an animal, immutable once
// appended.
type Vaccination struct {
	AnimalTag  string    `json:"animal_tag"`
	Vaccine    string    `json:"vaccine"`
	Date       string    `json:"date"`
	NextDose   string    `json:"next_dose"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Deworming is one deworming record for an animal.
type Deworming struct {
	AnimalTag  string    `json:"animal_tag"`
	Product    string    `json:"product"`
	Dose       string    `json:"dose"`
	Date       string    `json:"date"`
	RecordedAt time.Time `json:"recorded_at"`
}

// AnimalRecord registers one animal in the herd. Vaccination and deworming
// records refer to it by equality on Tag.
type AnimalRecord struct {
	Tag        string    `json:"tag"`
	Species    string    `json:"species"`
	Breed      string    `json:"breed"`
	BirthDate  string    `json:"birth_date"`
	Weight     string    `json:"weight"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Stock movement directions.
const (
	StockIn  = "in"
	StockOut = "out"
)

// StockMovement is one stock-in or stock-out entry.
type StockMovement struct {
	Direction  string    `json:"direction"`
	Item       string    `json:"item"`
	Category   string    `json:"category"`
	Quantity   float64   `json:"quantity"`
	Unit       string    `json:"unit"`
	UnitPrice  float64   `json:"unit_price"`
	Note       string    `json:"note"`
	RecordedAt time.Time `json:"recorded_at"`
}

// SimulationRun is one completed crop yield simulation.
type SimulationRun struct {
	Crop       string    `json:"crop"`
	AreaHa     float64   `json:"area_ha"`
	Soil       string    `json:"soil"`
	Climate    string    `json:"climate"`
	Cycle      string    `json:"cycle"`
	YieldPerHa float64   `json:"yield_per_ha"`
	TotalYield float64   `json:"total_yield"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Context is the full session state for one user identifier. It is loaded
// before each inbound message and saved before the reply is sent.
type Context struct {
	UserID string `json:"user_id"`

	Flow    ActiveFlow `json:"flow,omitempty"`
	Profile Profile    `json:"profile,omitempty"`

	Vaccinations   []Vaccination   `json:"vaccinations,omitempty"`
	Dewormings     []Deworming     `json:"dewormings,omitempty"`
	Animals        []AnimalRecord  `json:"animals,omitempty"`
	StockMovements []StockMovement `json:"stock_movements,omitempty"`
	Simulations    []SimulationRun `json:"simulations,omitempty"`

	// AwaitingContinueChoice gates the next message as a yes/no "anything
	// else?" answer after a flow completed.
	AwaitingContinueChoice bool `json:"awaiting_continue_choice,omitempty"`
	// ContinueSection is the section re-entered when the user answers yes.
	ContinueSection FlowType `json:"continue_section,omitempty"`

	// DailyForecast marks a subscription to the daily weather bulletin.
	// BulletinCity is the city the user was looking at when they subscribed,
	// which may differ from the registered Profile.City.
	DailyForecast bool   `json:"daily_forecast,omitempty"`
	BulletinCity  string `json:"bulletin_city,omitempty"`

	LastInteractionAt time.Time `json:"last_interaction_at,omitempty"`
}

// NewContext returns an empty session for the given user identifier.
func NewContext(userID string) Context {
	return Context{UserID: userID}
}

// ResetFlows clears the active flow and every gate belonging to it, returning
// the session to the main menu state. Profile and collections are preserved.
func (c *Context) ResetFlows() {
	c.Flow = ActiveFlow{}
	c.AwaitingContinueChoice = false
	c.ContinueSection = FlowNone
}

// Clear wipes the whole session except the key, used when the user ends the
// session explicitly. A later message restarts from an empty Context.
func (c *Context) Clear() {
	*c = NewContext(c.UserID)
}

// Registered reports whether every mandatory registration field is filled.
func (c *Context) Registered() bool {
	p := c.Profile
	mandatory := []string{
		p.FullName, p.CPF, p.BirthDate, p.Gender, p.MaritalStatus,
		p.Phone, p.Street, p.Number, p.District, p.City, p.State,
		p.PostalCode, p.PropertyName, p.PropertyArea, p.ProductionType,
		p.MainCrops, p.HerdSize, p.IrrigationType, p.WorkforceSize,
	}
	for _, v := range mandatory {
		if v == "" {
			return false
		}
	}
	return true
}

// AnimalByTag finds a registered animal by its tag, matching on equality.
func (c *Context) AnimalByTag(tag string) (AnimalRecord, bool) {
	for _, a := range c.Animals {
		if a.Tag == tag {
			return a, true
		}
	}
	return AnimalRecord{}, false
}
