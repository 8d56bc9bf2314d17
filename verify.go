package sheetdb

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// VerifyReport lists what VerifyStructure found and changed.
type VerifyReport struct {
	OK       []string `json:"ok"`
	Created  []string `json:"created"`
	Repaired []string `json:"repaired"`
}

// HeadersCompatible reports whether actual starts with the expected columns,
// compared case-insensitively. Extra trailing columns are allowed.
func HeadersCompatible(actual, expected []string) bool {
	if len(actual) < len(expected) {
		return false
	}
	for i, col := range expected {
		if !strings.EqualFold(strings.TrimSpace(actual[i]), col) {
			return false
		}
	}
	return true
}

// VerifyStructure checks that every registered table has a worksheet whose
// header row matches its schema. Missing worksheets are created and
// mismatched headers are overwritten. Only a failure to inspect, create or
// repair a worksheet is returned as an error.
func VerifyStructure(ctx context.Context, registry *Registry, mgr StructureManager, logger *slog.Logger) (*VerifyReport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	report := &VerifyReport{}

	for _, table := range registry.Tables() {
		expected := registry.ColumnsFor(table)

		actual, exists, err := mgr.Headers(ctx, table)
		if err != nil {
			return report, fmt.Errorf("read headers of %s: %w", table, err)
		}

		switch {
		case !exists:
			if err := mgr.CreateTable(ctx, table, expected); err != nil {
				return report, fmt.Errorf("create worksheet %s: %w", table, err)
			}
			logger.Info("created worksheet", "table", table, "columns", len(expected))
			report.Created = append(report.Created, table)
		case !HeadersCompatible(actual, expected):
			if err := mgr.WriteHeaders(ctx, table, expected); err != nil {
				return report, fmt.Errorf("repair headers of %s: %w", table, err)
			}
			logger.Info("repaired worksheet headers", "table", table, "found", actual, "expected", expected)
			report.Repaired = append(report.Repaired, table)
		default:
			report.OK = append(report.OK, table)
		}
	}

	return report, nil
}
