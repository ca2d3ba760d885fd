package reports

import (
	"encoding/csv"
	"io"
)

// WriteTrialBalanceCSV serialises a trial balance to CSV.
func WriteTrialBalanceCSV(w io.Writer, tb TrialBalance) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Group", "Code", "Name", "Opening", "Debit", "Credit", "Closing"}); err != nil {
		return err
	}
	for _, group := range tb.Groups {
		for _, row := range group.Accounts {
			record := []string{
				group.Key,
				row.Code,
				row.Name,
				row.Opening.StringFixed(2),
				row.Debit.StringFixed(2),
				row.Credit.StringFixed(2),
				row.Closing.StringFixed(2),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}
	total := []string{
		"", "", "Total",
		tb.TotalOpening.StringFixed(2),
		tb.TotalDebit.StringFixed(2),
		tb.TotalCredit.StringFixed(2),
		tb.TotalClosing.StringFixed(2),
	}
	if err := writer.Write(total); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteGeneralLedgerCSV emits posted account activity as CSV.
func WriteGeneralLedgerCSV(w io.Writer, gl GeneralLedger) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Date", "Entry", "Description", "Side", "Amount", "Memo", "Running"}); err != nil {
		return err
	}
	for _, line := range gl.Lines {
		record := []string{
			line.EntryDate.Format("2006-01-02"),
			itoa(line.Number),
			line.Description,
			string(line.Side),
			line.Amount.StringFixed(2),
			line.Memo,
			line.Running.StringFixed(2),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
