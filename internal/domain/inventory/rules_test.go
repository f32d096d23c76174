package inventory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/jhoicas/suministros-api/internal/domain"
	"github.com/jhoicas/suministros-api/internal/domain/entity"
	"github.com/jhoicas/suministros-api/internal/domain/inventory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func inbound(qty int64) *entity.Movement {
	return &entity.Movement{
		ItemID: "x", LocationID: "l", Type: entity.MovementInbound,
		Quantity: decimal.NewFromInt(qty), Date: now.Add(-time.Hour),
		Operator: "ana", Supplier: "S",
	}
}

func outbound(qty int64) *entity.Movement {
	return &entity.Movement{
		ItemID: "x", LocationID: "l", Type: entity.MovementOutbound,
		Quantity: decimal.NewFromInt(qty), Date: now.Add(-time.Hour),
		Operator: "ana", Recipient: "Contabilidad", Purpose: "consumo",
	}
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var de *domain.Error
	require.True(t, errors.As(err, &de), "se esperaba *domain.Error, llegó %v", err)
	assert.Equal(t, domain.KindValidation, de.Kind)
	return de.Fields
}

func TestValidateMovement_Validos(t *testing.T) {
	assert.NoError(t, inventory.ValidateMovement(inbound(100), now))
	assert.NoError(t, inventory.ValidateMovement(outbound(1), now))
	assert.NoError(t, inventory.ValidateMovement(inbound(1_000_000), now))
}

func TestValidateMovement_ReglasPorTipo(t *testing.T) {
	m := inbound(10)
	m.Supplier = ""
	m.Recipient = "alguien"
	m.Purpose = "algo"
	f := fieldsOf(t, inventory.ValidateMovement(m, now))
	assert.Contains(t, f, "supplier")
	assert.Contains(t, f, "recipient")
	assert.Contains(t, f, "purpose")

	m = outbound(10)
	m.Supplier = "S"
	m.Recipient = ""
	m.Purpose = " "
	f = fieldsOf(t, inventory.ValidateMovement(m, now))
	assert.Contains(t, f, "supplier")
	assert.Contains(t, f, "recipient")
	assert.Contains(t, f, "purpose")
}

func TestValidateMovement_CantidadYFecha(t *testing.T) {
	m := inbound(0)
	assert.Contains(t, fieldsOf(t, inventory.ValidateMovement(m, now)), "quantity")

	m = inbound(1_000_001)
	assert.Contains(t, fieldsOf(t, inventory.ValidateMovement(m, now)), "quantity")

	m = inbound(-5)
	assert.Contains(t, fieldsOf(t, inventory.ValidateMovement(m, now)), "quantity")

	m = inbound(5)
	m.Date = now.Add(time.Minute)
	assert.Contains(t, fieldsOf(t, inventory.ValidateMovement(m, now)), "date")

	m = inbound(5)
	m.Type = "transfer"
	assert.Contains(t, fieldsOf(t, inventory.ValidateMovement(m, now)), "type")
}

func TestValidateMovement_Longitudes(t *testing.T) {
	m := inbound(5)
	m.Operator = string(make([]rune, inventory.MaxOperatorLength+1))
	m.Notes = string(make([]byte, inventory.MaxNotesLength+1))
	f := fieldsOf(t, inventory.ValidateMovement(m, now))
	assert.Contains(t, f, "operator")
	assert.Contains(t, f, "notes")
}

func TestCheckDeletable(t *testing.T) {
	window := inventory.DefaultDeleteDays * 24 * time.Hour

	m := inbound(5)
	assert.NoError(t, inventory.CheckDeletable(m, 0, now, window))

	m.Date = now.Add(-8 * 24 * time.Hour)
	assert.True(t, errors.Is(inventory.CheckDeletable(m, 0, now, window), domain.ErrRetentionExpired))

	m = inbound(5)
	m.BatchID = "b1"
	assert.NoError(t, inventory.CheckDeletable(m, 1, now, window), "lote de una sola fila se puede borrar")
	assert.True(t, errors.Is(inventory.CheckDeletable(m, 2, now, window), domain.ErrPartOfBatch))
}

func TestCheckReversible(t *testing.T) {
	window := inventory.DefaultReverseDays * 24 * time.Hour
	m := outbound(5)
	assert.NoError(t, inventory.CheckReversible(m, now, window))

	m.Date = now.Add(-31 * 24 * time.Hour)
	assert.True(t, errors.Is(inventory.CheckReversible(m, now, window), domain.ErrRetentionExpired))
}

func TestNewReversal_DeEntrada(t *testing.T) {
	orig := inbound(40)
	orig.ID = "mov-1"

	rev := inventory.NewReversal(orig, "luis", now)

	assert.Equal(t, entity.MovementOutbound, rev.Type)
	assert.True(t, rev.Quantity.Equal(orig.Quantity))
	assert.Equal(t, orig.ItemID, rev.ItemID)
	assert.Equal(t, orig.LocationID, rev.LocationID)
	assert.Equal(t, "luis", rev.Operator)
	assert.Equal(t, "Reversión de movimiento mov-1", rev.Notes)
	assert.Equal(t, "reversión mov-1", rev.Purpose)
	assert.Empty(t, rev.Supplier)
	assert.NoError(t, inventory.ValidateMovement(rev, now), "la reversión debe cumplir las reglas de negocio")
}

func TestNewReversal_DeSalida(t *testing.T) {
	orig := outbound(7)
	orig.ID = "mov-2"

	rev := inventory.NewReversal(orig, "luis", now)

	assert.Equal(t, entity.MovementInbound, rev.Type)
	assert.Equal(t, "reversión mov-2", rev.Supplier)
	assert.Empty(t, rev.Recipient)
	assert.Empty(t, rev.Purpose)
	assert.NoError(t, inventory.ValidateMovement(rev, now))
}

func TestOutboundByPair_Y_SortedPairs(t *testing.T) {
	a := outbound(50)
	b := outbound(40)
	c := outbound(30)
	d := inbound(500)
	e := outbound(5)
	e.LocationID = "k"

	totals := inventory.OutboundByPair([]*entity.Movement{a, b, c, d, e})
	assert.True(t, totals[entity.PairKey{ItemID: "x", LocationID: "l"}].Equal(decimal.NewFromInt(120)))
	assert.True(t, totals[entity.PairKey{ItemID: "x", LocationID: "k"}].Equal(decimal.NewFromInt(5)))

	pairs := inventory.SortedPairs([]*entity.Movement{a, e, d})
	assert.Equal(t, []entity.PairKey{{ItemID: "x", LocationID: "k"}, {ItemID: "x", LocationID: "l"}}, pairs)
}
