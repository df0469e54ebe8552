// Package export writes conversion job reports as spreadsheets.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/tealeg/xlsx"

	"video-conversion/internal/app/model"
)

const pageSize = 500

// JobLister pages through jobs in id order.
type JobLister interface {
	ListAfter(ctx context.Context, afterID int64, limit int) ([]model.ConversionJob, error)
}

var header = []string{
	"ID", "Content Hash", "Name", "Status", "Transcoder Status", "Alternate Transcoder",
	"Output Size", "HLS", "Input Deleted", "Created", "Modified", "Completed",
}

// ToExcel writes every job returned by lister to an xlsx file and returns the row count.
func ToExcel(ctx context.Context, lister JobLister, outputFilePath string) (int, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Conversions")
	if err != nil {
		return 0, err
	}

	headerRow := sheet.AddRow()
	for _, h := range header {
		headerRow.AddCell().Value = h
	}

	var (
		afterID int64
		count   int
	)
	for {
		jobs, err := lister.ListAfter(ctx, afterID, pageSize)
		if err != nil {
			return count, fmt.Errorf("list conversions after %d: %w", afterID, err)
		}
		for _, j := range jobs {
			addJobRow(sheet.AddRow(), j)
			afterID = j.ID
		}
		count += len(jobs)
		if len(jobs) < pageSize {
			break
		}
	}

	if err := file.Save(outputFilePath); err != nil {
		return count, fmt.Errorf("save %s: %w", outputFilePath, err)
	}
	return count, nil
}

func addJobRow(row *xlsx.Row, j model.ConversionJob) {
	row.AddCell().SetInt64(j.ID)
	row.AddCell().Value = j.ContentHash
	row.AddCell().Value = j.Name
	row.AddCell().Value = string(j.Status)
	row.AddCell().Value = string(j.TranscoderStatus)
	row.AddCell().SetBool(j.AltTranscoder)
	row.AddCell().SetInt64(j.OutputSize)
	row.AddCell().SetBool(j.HasHLS)
	row.AddCell().SetBool(j.InputDeleted)
	row.AddCell().Value = j.TimeCreated.UTC().Format(time.RFC3339)
	row.AddCell().Value = j.TimeModified.UTC().Format(time.RFC3339)
	completed := row.AddCell()
	if j.TimeCompleted != nil {
		completed.Value = j.TimeCompleted.UTC().Format(time.RFC3339)
	}
}
