package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/settlement-tracker/internal/fees"
	"github.com/dvloznov/settlement-tracker/internal/logger"
	"github.com/dvloznov/settlement-tracker/internal/pipeline"
	"github.com/dvloznov/settlement-tracker/internal/sheet"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var fixedNow = time.Date(2025, time.March, 15, 10, 30, 0, 0, time.UTC)

func newTestProcessor() *pipeline.Processor {
	return pipeline.NewProcessor(pipeline.ProcessorConfig{
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
	})
}

// buildWorkbook writes rows into the first sheet of a new xlsx file.
func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	name := f.GetSheetName(0)
	for r, values := range rows {
		for c, v := range values {
			if v == nil {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(name, ref, v))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func settlementWorkbook(t *testing.T) []byte {
	return buildWorkbook(t, [][]interface{}{
		{"Ventas desde 01/01/2023 hasta 31/01/2023"},
		{"Generado automáticamente"},
		nil,
		{"Fecha de la compra", "Número de operación", "Descripción del ítem", "Cobro", "Cargos e impuestos", "Resumen", "Total a recibir"},
		{"9 ene 20:59 hs", "1001", "Remera", "$ 10.000,00", "$ -1.500,00", "Cargo por venta $ -1.000,00\nRetención IIBB $ -200,00\nEnvío $ -300,00", "$ 8.500,00"},
		{"", "", "", "", "", "", ""},
		{"15 ene 08:10 hs", int64(1002), "", 2000.5, -300.5, "Percepción IVA $ -100,50", 1700},
		{"fecha rota", "1003", "Gorra", "$ 500,00", "$ 0,00", "", "$ 500,00"},
		{"Total", nil, nil, "$ 12.500,50"},
	})
}

func TestProcessSettlement(t *testing.T) {
	data := settlementWorkbook(t)

	result, err := newTestProcessor().ProcessSettlement(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)

	assert.NotEmpty(t, result.ImportID)
	assert.Len(t, result.Checksum, 64)
	assert.Equal(t, sheet.FormatXLSX, result.Format)
	assert.Equal(t, 2023, result.Year)
	assert.True(t, result.HeaderFound)
	assert.Equal(t, 3, result.HeaderRow)
	assert.Equal(t, 1, result.Columns["operation_id"])

	require.Len(t, result.Records, 3)
	assert.Equal(t, pipeline.Stats{DataRows: 3, SkippedRows: 2, DegradedDates: 1}, result.Stats)

	// "fecha rota" resolves to now, which sorts first.
	ids := []string{result.Records[0].OperationID, result.Records[1].OperationID, result.Records[2].OperationID}
	assert.Equal(t, []string{"1003", "1002", "1001"}, ids)

	first := result.Records[2]
	assert.True(t, time.Date(2023, 1, 9, 20, 59, 0, 0, time.UTC).Equal(first.Date))
	assert.Equal(t, "Remera", first.Product)
	assert.True(t, decimal.RequireFromString("10000").Equal(first.GrossAmount))
	assert.True(t, decimal.RequireFromString("-200").Equal(first.TaxesAmount))
	assert.True(t, decimal.RequireFromString("-300").Equal(first.ShippingAmount))
	assert.True(t, decimal.RequireFromString("-1000").Equal(first.CommissionAmount))

	numeric := result.Records[1]
	assert.Equal(t, "Varios", numeric.Product)
	assert.True(t, decimal.RequireFromString("2000.5").Equal(numeric.GrossAmount))
	assert.True(t, decimal.RequireFromString("-100.5").Equal(numeric.TaxesAmount))
	assert.True(t, decimal.RequireFromString("-200").Equal(numeric.CommissionAmount))

	assert.True(t, fixedNow.Equal(result.Records[0].Date))

	for _, rec := range result.Records {
		assert.True(t, rec.Reconciles(), "%s does not reconcile", rec.OperationID)
		assert.GreaterOrEqual(t, rec.Date.Year(), 2000)
	}
}

func TestProcessSettlement_NoHeader(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"Reporte"},
		{"Cobro", "Resumen"},
		{"$ 1,00", "IVA $ -1,00"},
	})

	result, err := newTestProcessor().ProcessBytes(context.Background(), data)
	require.NoError(t, err)
	assert.False(t, result.HeaderFound)
	assert.NotNil(t, result.Records)
	assert.Empty(t, result.Records)
	assert.Equal(t, 2025, result.Year, "no year in the title falls back to now")
}

func TestProcessSettlement_YearFallsBackToClock(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"Número de operación", "Fecha de la compra"},
		{"1", "1 jun 12:00"},
	})

	result, err := newTestProcessor().ProcessBytes(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, 2025, result.Records[0].Date.Year())
}

func TestProcessSettlement_Errors(t *testing.T) {
	small := pipeline.NewProcessor(pipeline.ProcessorConfig{MaxInputBytes: 10})

	t.Run("too large", func(t *testing.T) {
		_, err := small.ProcessBytes(context.Background(), bytes.Repeat([]byte("x"), 11))
		assert.ErrorIs(t, err, pipeline.ErrInputTooLarge)

		_, err = small.ProcessSettlement(context.Background(), bytes.NewReader(bytes.Repeat([]byte("x"), 1000)))
		assert.ErrorIs(t, err, pipeline.ErrInputTooLarge)
	})

	t.Run("exactly at the cap is read", func(t *testing.T) {
		_, err := small.ProcessBytes(context.Background(), bytes.Repeat([]byte("x"), 10))
		assert.False(t, errors.Is(err, pipeline.ErrInputTooLarge))
		assert.ErrorIs(t, err, pipeline.ErrUnsupportedFormat)
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := newTestProcessor().ProcessBytes(context.Background(), []byte("Número de operación,Cobro\n1,2\n"))
		assert.ErrorIs(t, err, pipeline.ErrUnsupportedFormat)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := newTestProcessor().ProcessBytes(context.Background(), nil)
		assert.ErrorIs(t, err, pipeline.ErrUnsupportedFormat)
	})

	t.Run("cancelled context returns nothing", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := newTestProcessor().ProcessBytes(ctx, settlementWorkbook(t))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, result)
	})
}

func TestProcessSettlement_CustomVocabulary(t *testing.T) {
	vocab := fees.DefaultVocabulary().Merge(fees.Vocabulary{Shipping: []string{"flete"}})
	labels := sheet.DefaultHeaderLabels().Merge(sheet.HeaderLabels{sheet.ColOperationID: {"ID"}})
	proc := pipeline.NewProcessor(pipeline.ProcessorConfig{
		Vocabulary:   &vocab,
		HeaderLabels: labels,
		Location:     time.UTC,
		Now:          func() time.Time { return fixedNow },
	})

	data := buildWorkbook(t, [][]interface{}{
		{"ID", "Cargos e impuestos", "Resumen"},
		{"9", "$ -70,00", "Flete $ -70,00"},
	})

	result, err := proc.ProcessBytes(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.True(t, decimal.RequireFromString("-70").Equal(result.Records[0].ShippingAmount))
	assert.True(t, result.Records[0].CommissionAmount.IsZero())
}

func TestProcessSettlement_DuplicateOperations(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"Ventas 2024"},
		{"Fecha de la compra", "Número de operación", "Cobro", "Cargos e impuestos", "Total a recibir"},
		{"2 feb 10:00 hs", "5001", "$ 100,00", "$ -10,00", "$ 90,00"},
		{"2 feb 10:00 hs", "5001", "$ 100,00", "$ -10,00", "$ 90,00"},
		{"3 feb 11:00 hs", "5002", "$ 50,00", "$ 0,00", "$ 50,00"},
	})

	result, err := newTestProcessor().ProcessBytes(context.Background(), data)
	require.NoError(t, err)

	assert.Len(t, result.Records, 3)
	assert.Equal(t, 1, result.Stats.DuplicateOperations)
}

func TestProcessSettlement_LogsThroughContextLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(&buf))

	_, err := newTestProcessor().ProcessBytes(ctx, settlementWorkbook(t))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Workbook decoded")
	assert.Contains(t, out, `"format":"xlsx"`)
	assert.Contains(t, out, "Settlement processed")
}
