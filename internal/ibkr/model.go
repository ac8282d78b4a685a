package ibkr

import "encoding/xml"

// FlexRequestResponse is the reply to a SendRequest call. On success it
// carries the reference code and URL from which the statement is fetched.
type FlexRequestResponse struct {
	XMLName       xml.Name `xml:"FlexStatementResponse"`
	Timestamp     string   `xml:"timestamp,attr"`
	Status        string   `xml:"Status"`        // Success or Fail
	ReferenceCode string   `xml:"ReferenceCode"` // Code to download the requested statement
	URL           string   `xml:"Url"`           // URL to download statement
	ErrorCode     *int     `xml:"ErrorCode"`
	ErrorMessage  *string  `xml:"ErrorMessage"`
}

// FlexQueryResponse is a Flex statement. Only the sections that map onto
// portfolio transactions are decoded.
type FlexQueryResponse struct {
	XMLName        xml.Name `xml:"FlexQueryResponse"`
	QueryName      string   `xml:"queryName,attr"`
	FlexStatements struct {
		FlexStatement []FlexStatement `xml:"FlexStatement"`
	} `xml:"FlexStatements"`
}

// FlexStatement holds one account's activity.
type FlexStatement struct {
	AccountID string `xml:"accountId,attr"`
	FromDate  string `xml:"fromDate,attr"`
	ToDate    string `xml:"toDate,attr"`
	Trades    struct {
		Trade []Trade `xml:"Trade"`
	} `xml:"Trades"`
	CashTransactions struct {
		CashTransaction []CashTransaction `xml:"CashTransaction"`
	} `xml:"CashTransactions"`
}

// Trade is an executed order. Quantity is negative for sells and
// IbCommission is negative when a commission was charged. Numeric attributes
// are kept as text because IBKR leaves them empty when not applicable.
type Trade struct {
	Currency      string `xml:"currency,attr"`
	Symbol        string `xml:"symbol,attr"`
	Description   string `xml:"description,attr"`
	Isin          string `xml:"isin,attr"`
	Quantity      string `xml:"quantity,attr"`
	TradePrice    string `xml:"tradePrice,attr"`
	IbCommission  string `xml:"ibCommission,attr"`
	TransactionID string `xml:"transactionID,attr"`
	TradeDate     string `xml:"tradeDate,attr"`
	BuySell       string `xml:"buySell,attr"`
}

// CashTransaction is a cash movement such as a dividend or withholding tax.
type CashTransaction struct {
	Currency      string `xml:"currency,attr"`
	Symbol        string `xml:"symbol,attr"`
	Description   string `xml:"description,attr"`
	DateTime      string `xml:"dateTime,attr"`
	Amount        string `xml:"amount,attr"`
	Type          string `xml:"type,attr"`
	TransactionID string `xml:"transactionID,attr"`
}
