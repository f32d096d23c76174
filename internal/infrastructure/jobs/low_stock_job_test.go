package jobs_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/suministros-api/internal/application/dto"
	"github.com/jhoicas/suministros-api/internal/infrastructure/jobs"
)

type MockAlertSource struct {
	mock.Mock
}

func (m *MockAlertSource) LowStockAlerts(ctx context.Context, threshold *decimal.Decimal) ([]dto.LowStockAlertDTO, error) {
	args := m.Called(ctx, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dto.LowStockAlertDTO), args.Error(1)
}

type gauge struct{ n int }

func (g *gauge) SetLowStockAlerts(n int) { g.n = n }

func alert(sku string, stock, threshold int64) dto.LowStockAlertDTO {
	return dto.LowStockAlertDTO{
		InventoryRowDTO: dto.InventoryRowDTO{SKU: sku, LocationCode: "A-01", CurrentStock: decimal.NewFromInt(stock)},
		Threshold:       decimal.NewFromInt(threshold),
		StockDeficit:    decimal.NewFromInt(threshold - stock),
	}
}

func TestLowStockJob_ScanRegistraCadaAlerta(t *testing.T) {
	src := new(MockAlertSource)
	src.On("LowStockAlerts", mock.Anything, (*decimal.Decimal)(nil)).
		Return([]dto.LowStockAlertDTO{alert("PAP-001", 15, 20), alert("BOL-002", 0, 5)}, nil).Once()
	var buf bytes.Buffer
	g := &gauge{}

	job, err := jobs.NewLowStockJob(src, g, zerolog.New(&buf), time.Hour)
	require.NoError(t, err)
	defer job.Stop()

	n := job.Scan(context.Background())
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, g.n)
	assert.Contains(t, buf.String(), `"sku":"PAP-001"`)
	assert.Contains(t, buf.String(), `"deficit":"5"`)
	src.AssertExpectations(t)
}

func TestLowStockJob_ErrorNoActualizaGauge(t *testing.T) {
	src := new(MockAlertSource)
	src.On("LowStockAlerts", mock.Anything, mock.Anything).Return(nil, errors.New("db caída")).Once()
	g := &gauge{n: 7}

	job, err := jobs.NewLowStockJob(src, g, zerolog.Nop(), time.Hour)
	require.NoError(t, err)
	defer job.Stop()

	assert.Zero(t, job.Scan(context.Background()))
	assert.Equal(t, 7, g.n)
}

func TestLowStockJob_SeEjecutaPeriodicamente(t *testing.T) {
	src := new(MockAlertSource)
	done := make(chan struct{}, 4)
	src.On("LowStockAlerts", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			select {
			case done <- struct{}{}:
			default:
			}
		}).
		Return([]dto.LowStockAlertDTO{}, nil)

	job, err := jobs.NewLowStockJob(src, nil, zerolog.Nop(), 50*time.Millisecond)
	require.NoError(t, err)
	job.Start()
	defer job.Stop()

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("el job no se ejecutó")
		}
	}
}

func TestNewLowStockJob_IntervaloInvalido(t *testing.T) {
	_, err := jobs.NewLowStockJob(new(MockAlertSource), nil, zerolog.Nop(), 0)
	assert.Error(t, err)
}
