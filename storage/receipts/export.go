package receipts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"hashmelody/crypto"
)

type parquetPurchase struct {
	ReceiptID      string `parquet:"name=receipt_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Token          string `parquet:"name=token, type=BYTE_ARRAY, convertedtype=UTF8"`
	Buyer          string `parquet:"name=buyer, type=BYTE_ARRAY, convertedtype=UTF8"`
	Amount         string `parquet:"name=amount, type=BYTE_ARRAY, convertedtype=UTF8"`
	Price          string `parquet:"name=price, type=BYTE_ARRAY, convertedtype=UTF8"`
	TotalCost      string `parquet:"name=total_cost, type=BYTE_ARRAY, convertedtype=UTF8"`
	PlatformFee    string `parquet:"name=platform_fee, type=BYTE_ARRAY, convertedtype=UTF8"`
	VaultAmount    string `parquet:"name=vault_amount, type=BYTE_ARRAY, convertedtype=UTF8"`
	Supply         string `parquet:"name=supply, type=BYTE_ARRAY, convertedtype=UTF8"`
	TotalCollected string `parquet:"name=total_collected, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp      int64  `parquet:"name=timestamp, type=INT64"`
	RecordedAt     string `parquet:"name=recorded_at, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// ExportParquet writes every journaled purchase of token to path in
// timestamp order and returns the number of rows written.
func (j *Journal) ExportParquet(ctx context.Context, token [20]byte, path string) (int, error) {
	var rows []Purchase
	err := j.db.WithContext(ctx).
		Where("token = ?", crypto.FormatToken(token)).
		Order("timestamp ASC").Order("recorded_at ASC").
		Find(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("query purchases: %w", err)
	}
	if err := writeParquet(path, rows); err != nil {
		return 0, err
	}
	j.logger.Info("exported purchases",
		slog.String("token", crypto.FormatToken(token)),
		slog.String("path", path),
		slog.Int("rows", len(rows)))
	return len(rows), nil
}

func writeParquet(path string, rows []Purchase) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(parquetPurchase), 1)
	if err != nil {
		file.Close()
		return fmt.Errorf("parquet schema: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		pr := &parquetPurchase{
			ReceiptID:      row.ReceiptID,
			Token:          row.Token,
			Buyer:          row.Buyer,
			Amount:         row.Amount,
			Price:          row.Price,
			TotalCost:      row.TotalCost,
			PlatformFee:    row.PlatformFee,
			VaultAmount:    row.VaultAmount,
			Supply:         row.Supply,
			TotalCollected: row.TotalCollected,
			Timestamp:      row.Timestamp,
			RecordedAt:     row.RecordedAt.UTC().Format(time.RFC3339),
		}
		if err := pw.Write(pr); err != nil {
			pw.WriteStop()
			file.Close()
			return fmt.Errorf("parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return fmt.Errorf("parquet flush: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close parquet file: %w", err)
	}
	return nil
}
