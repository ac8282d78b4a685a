package model

// ImportResult summarizes an IBKR statement import.
type ImportResult struct {
	Imported   int      `json:"imported"`
	Duplicates int      `json:"duplicates"`
	Skipped    []string `json:"skipped"`
}
