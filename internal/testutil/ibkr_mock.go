package testutil

import (
	"context"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/ibkr"
)

// SampleFlexStatement is a Flex statement for account U1234567 holding two
// importable AAPL trades, one AAPL dividend, a cancelled trade and a
// withholding tax entry.
const SampleFlexStatement = `<FlexQueryResponse queryName="portfolio" type="AF">
<FlexStatements count="1">
<FlexStatement accountId="U1234567" fromDate="20240101" toDate="20240131" period="LastMonth" whenGenerated="20240201;083000">
<Trades>
<Trade currency="USD" symbol="AAPL" description="APPLE INC" isin="US0378331005" quantity="10" tradePrice="185.5" ibCommission="-1" transactionID="1001" tradeDate="20240110" buySell="BUY" />
<Trade currency="USD" symbol="AAPL" description="APPLE INC" isin="US0378331005" quantity="-4" tradePrice="190" ibCommission="-1" transactionID="1002" tradeDate="20240120" buySell="SELL" />
<Trade currency="EUR" symbol="ASML" description="ASML HOLDING" isin="NL0010273215" quantity="2" tradePrice="650" ibCommission="" transactionID="1003" tradeDate="2024-01-22" buySell="BUY (Ca.)" />
</Trades>
<CashTransactions>
<CashTransaction currency="USD" symbol="AAPL" description="AAPL CASH DIVIDEND" dateTime="20240115;202000" amount="2.4" type="Dividends" transactionID="2001" />
<CashTransaction currency="USD" symbol="AAPL" description="AAPL US TAX" dateTime="20240115;202000" amount="-0.36" type="Withholding Tax" transactionID="2002" />
</CashTransactions>
</FlexStatement>
</FlexStatements>
</FlexQueryResponse>`

// MockIbkrClient is a test double for ibkr.Client.
type MockIbkrClient struct {
	Report ibkr.FlexQueryResponse
	Err    error
	Calls  int
}

// NewMockIbkrClient returns a client serving the given statement document.
// It panics if the document does not parse.
func NewMockIbkrClient(statement string) *MockIbkrClient {
	report, err := ibkr.ParseFlexReport([]byte(statement))
	if err != nil {
		panic(err)
	}
	return &MockIbkrClient{Report: report}
}

// WithError makes every fetch fail with err.
func (m *MockIbkrClient) WithError(err error) *MockIbkrClient {
	m.Err = err
	return m
}

func (m *MockIbkrClient) FlexReport(_ context.Context, _, _ string) (ibkr.FlexQueryResponse, error) {
	m.Calls++
	if m.Err != nil {
		return ibkr.FlexQueryResponse{}, m.Err
	}
	return m.Report, nil
}
