package flow

import (
	"strings"
	"testing"

	"github.com/campo-inteligente/campobot/internal/models"
)

func TestInventoryStockInEntry(t *testing.T) {
	fx := newEngineFixture()
	user := "5511999998888"

	reply := requireOneReply(t, fx.send(t, user, "2"))
	if reply != renderInventoryMenu() {
		t.Fatalf("opening = %q, want the inventory menu", reply)
	}

	fx.send(t, user, "1")
	fx.send(t, user, "fertilizer NPK 20-05-20")
	fx.send(t, user, "input")
	fx.send(t, user, "12,5")
	fx.send(t, user, "bag")
	fx.send(t, user, "189.90")
	reply = requireOneReply(t, fx.send(t, user, "bought from the cooperative"))
	if !strings.Contains(reply, "✅ Stock in recorded: 12.5 bag of fertilizer NPK 20-05-20.") {
		t.Errorf("confirmation = %q", reply)
	}
	if !strings.Contains(reply, "record another movement? (yes/no)") {
		t.Errorf("confirmation does not arm the continue gate: %q", reply)
	}

	sessionCtx := fx.loadContext(t, user)
	if len(sessionCtx.StockMovements) != 1 {
		t.Fatalf("stored %d movements, want 1", len(sessionCtx.StockMovements))
	}
	m := sessionCtx.StockMovements[0]
	if m.Direction != models.StockIn || m.Item != "fertilizer NPK 20-05-20" || m.Category != "input" {
		t.Errorf("stored movement = %+v", m)
	}
	if m.Quantity != 12.5 || m.Unit != "bag" || m.UnitPrice != 189.90 {
		t.Errorf("stored quantities = %+v", m)
	}
	if m.Note != "bought from the cooperative" {
		t.Errorf("Note = %q", m.Note)
	}
	if sessionCtx.ContinueSection != models.FlowInventory {
		t.Errorf("ContinueSection = %q, want inventory", sessionCtx.ContinueSection)
	}
}

func TestInventoryStockOutEntry(t *testing.T) {
	fx := newEngineFixture()
	user := "5511999998888"

	fx.send(t, user, "2")
	fx.send(t, user, "2")
	fx.send(t, user, "corn harvest")
	fx.send(t, user, "harvest")
	fx.send(t, user, "800")
	fx.send(t, user, "kg")
	fx.send(t, user, "0")
	reply := requireOneReply(t, fx.send(t, user, "-"))
	if !strings.Contains(reply, "✅ Stock out recorded: 800.0 kg of corn harvest.") {
		t.Errorf("confirmation = %q", reply)
	}
	m := fx.loadContext(t, user).StockMovements[0]
	if m.Direction != models.StockOut || m.UnitPrice != 0 {
		t.Errorf("stored movement = %+v", m)
	}
}

func TestInventoryZeroPriceAllowedButNegativeRejected(t *testing.T) {
	fx := newEngineFixture()
	user := "5511999998888"

	fx.send(t, user, "2")
	fx.send(t, user, "1")
	fx.send(t, user, "diesel")
	fx.send(t, user, "input")
	fx.send(t, user, "40")
	fx.send(t, user, "liter")

	reply := requireOneReply(t, fx.send(t, user, "-5"))
	if !strings.Contains(reply, "please send a number") {
		t.Errorf("negative price reply = %q", reply)
	}
	reply = requireOneReply(t, fx.send(t, user, "0"))
	if reply != inventoryPrompts[6] {
		t.Errorf("after zero price got %q, want the note prompt", reply)
	}
}

func TestInventoryRejectsZeroQuantity(t *testing.T) {
	fx := newEngineFixture()
	user := "5511999998888"

	fx.send(t, user, "2")
	fx.send(t, user, "1")
	fx.send(t, user, "diesel")
	fx.send(t, user, "input")

	reply := requireOneReply(t, fx.send(t, user, "0"))
	if !strings.Contains(reply, "positive number") {
		t.Errorf("zero quantity reply = %q", reply)
	}
}

func TestInventoryBackStepsThroughQuestions(t *testing.T) {
	fx := newEngineFixture()
	user := "5511999998888"

	fx.send(t, user, "2")
	fx.send(t, user, "1")
	fx.send(t, user, "diesel")

	reply := requireOneReply(t, fx.send(t, user, "back"))
	if reply != inventoryPrompts[1] {
		t.Errorf("back got %q, want the item prompt", reply)
	}
	reply = requireOneReply(t, fx.send(t, user, "back"))
	if reply != renderInventoryMenu() {
		t.Errorf("back from the first question got %q, want the sub-menu", reply)
	}
}

func TestInventoryViewMovements(t *testing.T) {
	fx := newEngineFixture()
	user := "5511999998888"

	fx.send(t, user, "2")
	reply := requireOneReply(t, fx.send(t, user, "3"))
	if !strings.Contains(reply, "Your inventory is empty") {
		t.Errorf("empty view = %q", reply)
	}

	fx.send(t, user, "1")
	fx.send(t, user, "diesel")
	fx.send(t, user, "input")
	fx.send(t, user, "40")
	fx.send(t, user, "liter")
	fx.send(t, user, "0")
	fx.send(t, user, "-")
	fx.send(t, user, "yes")

	reply = requireOneReply(t, fx.send(t, user, "3"))
	if !strings.Contains(reply, "Your stock movements:") || !strings.Contains(reply, "40.0 liter of diesel (input)") {
		t.Errorf("view = %q", reply)
	}
}

func TestInventoryExportReport(t *testing.T) {
	fx := newEngineFixture()
	user := "5511999998888"

	fx.send(t, user, "2")
	reply := requireOneReply(t, fx.send(t, user, "4"))
	if !strings.Contains(reply, "no stock movements to export") {
		t.Errorf("empty export = %q", reply)
	}

	fx.send(t, user, "1")
	fx.send(t, user, "diesel")
	fx.send(t, user, "input")
	fx.send(t, user, "40")
	fx.send(t, user, "liter")
	fx.send(t, user, "0")
	fx.send(t, user, "-")
	fx.send(t, user, "yes")

	reply = requireOneReply(t, fx.send(t, user, "4"))
	if !strings.Contains(reply, "Report ready: report.xlsx") {
		t.Errorf("export reply = %q", reply)
	}
	if len(fx.exporter.names) != 1 || fx.exporter.names[0] != "inventory" {
		t.Errorf("exporter names = %q", fx.exporter.names)
	}
}
