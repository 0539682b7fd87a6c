package flow

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/campo-inteligente/campobot/internal/models"
)

func renderInventoryMenu() string {
	return strings.Join([]string{
		"📦 Inventory — choose an option:",
		"1. Record stock in",
		"2. Record stock out",
		"3. View stock movements",
		"4. Export report",
		"0. Back to main menu",
	}, "\n")
}

var inventoryPrompts = []string{
	1: "Which item? (e.g. fertilizer NPK 20-05-20)",
	2: "Which category? (e.g. input, tool, harvest)",
	3: "What quantity?",
	4: "What unit? (e.g. kg, bag, liter)",
	5: "What is the unit price, in R$? (send 0 if not applicable)",
	6: "Any note? Supplier, destination... (send - for none)",
}

// startInventory enters the inventory section at its sub-menu.
func (e *Engine) startInventory(sessionCtx *models.Context) []string {
	sessionCtx.Flow = models.ActiveFlow{Type: models.FlowInventory, Inventory: &models.InventoryState{}}
	return []string{renderInventoryMenu()}
}

// handleInventory consumes one message while the inventory flow is active.
func (e *Engine) handleInventory(sessionCtx *models.Context, text string) []string {
	st := sessionCtx.Flow.Inventory
	if st.Mode == "" {
		return e.handleInventoryMenu(sessionCtx, text)
	}
	return e.handleInventoryStep(sessionCtx, text)
}

func (e *Engine) handleInventoryMenu(sessionCtx *models.Context, text string) []string {
	st := sessionCtx.Flow.Inventory
	if isSubMenuBack(text) {
		sessionCtx.ResetFlows()
		return []string{renderMainMenu()}
	}
	switch strings.TrimSpace(text) {
	case "1":
		st.Mode = models.StockIn
		st.Step = 1
		st.Draft = models.StockMovement{Direction: models.StockIn}
		return []string{inventoryPrompts[1]}
	case "2":
		st.Mode = models.StockOut
		st.Step = 1
		st.Draft = models.StockMovement{Direction: models.StockOut}
		return []string{inventoryPrompts[1]}
	case "3":
		return []string{formatStockList(sessionCtx.StockMovements)}
	case "4":
		return []string{e.exportInventoryReport(sessionCtx)}
	}
	return []string{"⚠️ I did not understand that option.\n\n" + renderInventoryMenu()}
}

func (e *Engine) handleInventoryStep(sessionCtx *models.Context, text string) []string {
	st := sessionCtx.Flow.Inventory

	if isBack(text) {
		st.Step--
		if st.Step < 1 {
			st.Mode = ""
			st.Step = 0
			return []string{renderInventoryMenu()}
		}
		return []string{inventoryPrompts[st.Step]}
	}

	switch st.Step {
	case 1, 2:
		value, err := validateNonEmpty(text)
		if err != nil {
			return []string{"⚠️ " + err.Error() + "\n" + inventoryPrompts[st.Step]}
		}
		if st.Step == 1 {
			st.Draft.Item = value
		} else {
			st.Draft.Category = value
		}
	case 3:
		value, err := validateDecimal(text)
		if err != nil {
			return []string{"⚠️ " + err.Error() + "\n" + inventoryPrompts[3]}
		}
		st.Draft.Quantity, _ = strconv.ParseFloat(value, 64)
	case 4:
		value, err := validateNonEmpty(text)
		if err != nil {
			return []string{"⚠️ " + err.Error() + "\n" + inventoryPrompts[4]}
		}
		st.Draft.Unit = value
	case 5:
		// Zero is allowed here, unlike the strictly positive quantity.
		v := strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
		price, err := strconv.ParseFloat(v, 64)
		if err != nil || price < 0 {
			return []string{"⚠️ please send a number, e.g. 0 or 35.90\n" + inventoryPrompts[5]}
		}
		st.Draft.UnitPrice = price
	case 6:
		st.Draft.Note = strings.TrimSpace(text)
		return e.completeInventoryEntry(sessionCtx)
	}

	st.Step++
	return []string{inventoryPrompts[st.Step]}
}

// completeInventoryEntry appends the movement, confirms, and sets the
// continue gate.
func (e *Engine) completeInventoryEntry(sessionCtx *models.Context) []string {
	st := sessionCtx.Flow.Inventory
	rec := st.Draft
	rec.RecordedAt = e.now()
	sessionCtx.StockMovements = append(sessionCtx.StockMovements, rec)

	direction := "in"
	if rec.Direction == models.StockOut {
		direction = "out"
	}

	sessionCtx.ResetFlows()
	sessionCtx.AwaitingContinueChoice = true
	sessionCtx.ContinueSection = models.FlowInventory

	slog.Info("Engine inventory entry completed", "userID", sessionCtx.UserID, "direction", direction, "item", rec.Item)
	return []string{fmt.Sprintf("✅ Stock %s recorded: %.1f %s of %s.", direction, rec.Quantity, rec.Unit, rec.Item) +
		"\n\nWould you like to record another movement? (yes/no)"}
}

// exportInventoryReport writes the movement history to a spreadsheet.
func (e *Engine) exportInventoryReport(sessionCtx *models.Context) string {
	if len(sessionCtx.StockMovements) == 0 {
		return "You have no stock movements to export yet."
	}
	headers := []string{"Direction", "Item", "Category", "Quantity", "Unit", "Unit price", "Note", "Date"}
	var rows [][]interface{}
	for _, m := range sessionCtx.StockMovements {
		rows = append(rows, []interface{}{
			m.Direction, m.Item, m.Category, m.Quantity, m.Unit, m.UnitPrice, m.Note,
			m.RecordedAt.Format("02/01/2006"),
		})
	}
	file, err := e.exporter.ExportReport("inventory", headers, rows)
	if err != nil {
		slog.Error("Engine inventory report export failed", "error", err, "userID", sessionCtx.UserID)
		return "😕 Sorry, I could not generate the report right now. Please try again later."
	}
	return fmt.Sprintf("📄 Report ready: %s", file)
}
