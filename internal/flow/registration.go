package flow

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/campo-inteligente/campobot/internal/models"
)

// startRegistration enters the registration wizard, or edit mode when the
// user is already fully registered.
func (e *Engine) startRegistration(sessionCtx *models.Context) []string {
	if sessionCtx.Registered() {
		sessionCtx.Flow = models.ActiveFlow{
			Type:         models.FlowRegistration,
			Registration: &models.RegistrationState{Editing: true},
		}
		return []string{formatProfileSummary(&sessionCtx.Profile) +
			"\n\nYou are already registered. Which field would you like to change? (or say \"done\")"}
	}

	idx := nextUnansweredField(&sessionCtx.Profile, 0)
	if idx < 0 {
		// Mandatory fields complete but Registered() false cannot happen;
		// guard anyway.
		sessionCtx.ResetFlows()
		return []string{renderMainMenu()}
	}
	st := &models.RegistrationState{FieldIndex: idx}
	sessionCtx.Flow = models.ActiveFlow{Type: models.FlowRegistration, Registration: st}

	f := registrationFields[idx]
	if f.Optional {
		st.AwaitingOptIn = true
		return []string{"📝 Let's register you. " + f.GatePrompt}
	}
	return []string{"📝 Let's register you. I will ask one question at a time.\n\n" + f.Prompt}
}

// handleRegistration consumes one message while the registration flow is
// active.
func (e *Engine) handleRegistration(sessionCtx *models.Context, text string) []string {
	st := sessionCtx.Flow.Registration
	if st.Editing {
		return e.handleProfileEdit(sessionCtx, text)
	}
	if isBack(text) {
		// The wizard has no step-back: collected answers stay, the user
		// returns to the menu and can resume later from where they stopped.
		sessionCtx.ResetFlows()
		return []string{"Your answers so far are saved. " + renderMainMenu()}
	}

	f := registrationFields[st.FieldIndex]

	if st.AwaitingOptIn {
		yes, ok := parseYesNo(text)
		if !ok {
			return []string{"⚠️ Please answer yes or no.\n" + f.GatePrompt}
		}
		if !yes {
			f.Set(&sessionCtx.Profile, models.NotProvided)
			return e.advanceRegistration(sessionCtx)
		}
		st.AwaitingOptIn = false
		st.AwaitingValue = true
		return []string{f.Prompt}
	}

	value, err := f.Validate(text)
	if err != nil {
		// Validation failure: the context is persisted (timestamp only)
		// but the step does not advance.
		slog.Debug("Engine registration validation failed", "userID", sessionCtx.UserID, "field", f.Key, "error", err)
		return []string{"⚠️ " + err.Error() + "\n" + f.Prompt}
	}
	f.Set(&sessionCtx.Profile, value)
	st.AwaitingValue = false
	return e.advanceRegistration(sessionCtx)
}

// advanceRegistration moves to the next unanswered field, or completes the
// wizard when none remains.
func (e *Engine) advanceRegistration(sessionCtx *models.Context) []string {
	st := sessionCtx.Flow.Registration
	idx := nextUnansweredField(&sessionCtx.Profile, st.FieldIndex+1)
	if idx < 0 {
		sessionCtx.ResetFlows()
		sessionCtx.AwaitingContinueChoice = true
		sessionCtx.ContinueSection = models.FlowNone
		slog.Info("Engine registration completed", "userID", sessionCtx.UserID)
		return []string{"✅ Registration complete! Thank you, " + firstName(sessionCtx.Profile.FullName) +
			".\n\nIs there anything else I can help you with? (yes/no)"}
	}

	st.FieldIndex = idx
	f := registrationFields[idx]
	if f.Optional {
		st.AwaitingOptIn = true
		return []string{f.GatePrompt}
	}
	return []string{f.Prompt}
}

// handleProfileEdit implements edit mode: name a field, send its new value,
// repeat until "done".
func (e *Engine) handleProfileEdit(sessionCtx *models.Context, text string) []string {
	st := sessionCtx.Flow.Registration

	if st.EditField == "" {
		v := strings.ToLower(strings.TrimSpace(text))
		if v == "done" || v == "no" || isBack(text) {
			sessionCtx.ResetFlows()
			return []string{"👍 Your registration is up to date.\n\n" + renderMainMenu()}
		}
		f, ok := matchEditField(text)
		if !ok {
			return []string{"⚠️ I did not recognize that field. You can change, for example: name, phone, city, area, crops, email.\nWhich field would you like to change? (or say \"done\")"}
		}
		st.EditField = f.Key
		current := f.Get(&sessionCtx.Profile)
		if current == "" {
			current = "(not set)"
		}
		return []string{fmt.Sprintf("Current value: %s\n%s", current, f.Prompt)}
	}

	f, ok := fieldByKey(st.EditField)
	if !ok {
		// Stale edit state, start over.
		st.EditField = ""
		return []string{"Which field would you like to change? (or say \"done\")"}
	}
	value, err := f.Validate(text)
	if err != nil {
		return []string{"⚠️ " + err.Error() + "\n" + f.Prompt}
	}
	f.Set(&sessionCtx.Profile, value)
	st.EditField = ""
	slog.Info("Engine profile field edited", "userID", sessionCtx.UserID, "field", f.Key)
	return []string{"✅ Updated. Would you like to edit another field, or say \"done\"?"}
}

// firstName returns the first word of a full name.
func firstName(full string) string {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return full
	}
	return parts[0]
}
