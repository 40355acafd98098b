package exchange

// contractDetailResponse from MEXC GET /api/v1/contract/detail
type contractDetailResponse struct {
	Success bool             `json:"success"`
	Code    int              `json:"code"`
	Data    []contractDetail `json:"data"`
}

// contractDetail is one contract from the MEXC API.
type contractDetail struct {
	Symbol        string `json:"symbol"`
	DisplayNameEn string `json:"displayNameEn"`
	BaseCoin      string `json:"baseCoin"`
	QuoteCoin     string `json:"quoteCoin"`
	SettleCoin    string `json:"settleCoin"`
	State         int    `json:"state"`
	MaxLeverage   int    `json:"maxLeverage"`
	APIAllowed    bool   `json:"apiAllowed"`
}

// exchangeInfoResponse from Binance GET /fapi/v1/exchangeInfo
type exchangeInfoResponse struct {
	Symbols []futuresSymbol `json:"symbols"`
}

// futuresSymbol is one symbol from the Binance futures API.
type futuresSymbol struct {
	Symbol       string `json:"symbol"`
	ContractType string `json:"contractType"`
	Status       string `json:"status"`
}
