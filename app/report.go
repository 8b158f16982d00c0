package app

import (
	"errors"
	"fmt"
	"log"

	"twse-attention-radar/database"
	"twse-attention-radar/database/market"
	models "twse-attention-radar/database/models_pkg"
	"twse-attention-radar/database/summary"
	"twse-attention-radar/helpers"
)

// printScanReport prints the scan currently on record, most urgent first,
// followed by the latest logged index closes.
func printScanReport(summaries *summary.Repository, markets *market.Repository) {
	date, err := summaries.ScanDate()
	if err != nil {
		var nf *database.NotFoundError
		if errors.As(err, &nf) {
			log.Println("📋 No scan on record yet.")
			return
		}
		log.Printf("⚠️ Scan report unavailable: %v", err)
		return
	}
	rows, err := summaries.List()
	if err != nil {
		log.Printf("⚠️ Scan report unavailable: %v", err)
		return
	}

	log.Printf("📋 掃描結果 %s: %d 檔", date.Format("2006-01-02"), len(rows))
	for _, row := range rows {
		log.Println("   " + summaryLine(row))
	}

	for _, t := range indexTargets {
		latest, ok, err := markets.LatestDate(t.code)
		if err != nil || !ok {
			continue
		}
		recent, err := markets.Recent(t.code, latest.AddDate(0, 0, -7))
		if err != nil || len(recent) == 0 {
			continue
		}
		last := recent[len(recent)-1]
		log.Printf("   📈 %s %s: 收 %.2f (%+.2f%%), 成交 %s",
			t.name, last.Date.Format("01-02"), last.Close, last.PctChange,
			helpers.FormatTWDYi(last.TurnoverYi*1e8))
	}
}

// summaryLine renders one summary row for the report.
func summaryLine(row models.StockSummary) string {
	return fmt.Sprintf("%s %s | 最快%s天 %s | 風險:%s | 量 %s | 當沖 %.2f%%",
		row.Code, row.Name, row.EstDisplay, row.Reason, row.RiskLevel,
		helpers.FormatLots(row.CurrVolLots), row.DayTradePct)
}
