package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/ibkr"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/repository"
	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/service"
)

type importIbkrCmd struct {
	file string
}

func (*importIbkrCmd) Name() string     { return "import-ibkr" }
func (*importIbkrCmd) Synopsis() string { return "import trades and dividends from an IBKR Flex statement" }
func (*importIbkrCmd) Usage() string {
	return `portfolioctl [-db <path>] import-ibkr [-f <statement.xml>]

  Without -f the Flex query configured by IBKR_FLEX_TOKEN and
  IBKR_FLEX_QUERY_ID is downloaded. Rows imported before are skipped.
`
}

func (p *importIbkrCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.file, "f", "", "Flex statement XML file to import instead of fetching.")
}

func (p *importIbkrCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	db, err := openDatabase(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	ibkrService := service.NewIbkrService(
		db,
		repository.NewTransactionRepository(db),
		ibkr.NewFinanceClient(),
		cfg.IBKR.Token,
		cfg.IBKR.QueryID,
		cfg.IBKR.Broker,
	)

	var result model.ImportResult
	if p.file != "" {
		result, err = importFile(ctx, ibkrService, p.file)
	} else {
		result, err = ibkrService.FetchAndImport(ctx)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Imported %d, duplicates %d, skipped %d\n", result.Imported, result.Duplicates, len(result.Skipped))
	for _, reason := range result.Skipped {
		fmt.Printf("  skipped %s\n", reason)
	}
	return subcommands.ExitSuccess
}

func importFile(ctx context.Context, ibkrService *service.IbkrService, path string) (model.ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ImportResult{}, err
	}
	report, err := ibkr.ParseFlexReport(data)
	if err != nil {
		return model.ImportResult{}, err
	}
	return ibkrService.ImportStatement(ctx, report)
}
