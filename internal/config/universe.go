package config

import "QuantDesk/internal/strategy"

// DefaultUniverse is the large-cap liquid US stock universe ranked by both
// strategies.
var DefaultUniverse = []string{
	// Technology
	"AAPL", "MSFT", "GOOGL", "META", "NVDA", "AVGO", "CSCO", "ADBE", "CRM",
	"ORCL", "ACN", "IBM", "INTC", "AMD", "QCOM", "TXN", "NOW", "INTU", "AMAT",
	"MU", "ADI", "LRCX", "KLAC", "SNPS", "CDNS", "MRVL", "NXPI", "MCHP", "ON",
	// Financials
	"JPM", "BAC", "WFC", "GS", "MS", "C", "BLK", "SCHW", "AXP", "SPGI",
	"CB", "MMC", "PNC", "USB", "TFC", "AIG", "MET", "PRU", "AFL", "ALL",
	"CME", "ICE", "MCO", "MSCI", "COF", "DFS", "BK", "STT",
	// Healthcare
	"UNH", "JNJ", "LLY", "PFE", "ABBV", "MRK", "TMO", "ABT", "DHR", "BMY",
	"AMGN", "GILD", "ISRG", "CVS", "ELV", "CI", "MDT", "SYK", "BSX", "REGN",
	"VRTX", "ZTS", "BDX", "HCA", "DXCM", "IQV", "A", "IDXX",
	// Consumer discretionary
	"AMZN", "TSLA", "HD", "MCD", "NKE", "LOW", "SBUX", "TJX", "BKNG", "CMG",
	"ORLY", "AZO", "ROST", "DHI", "LEN", "MAR", "HLT", "YUM",
	"F", "GM", "EBAY", "BBY", "GPC", "POOL", "ULTA",
	// Consumer staples
	"PG", "KO", "PEP", "COST", "WMT", "PM", "MO", "MDLZ", "CL",
	"KMB", "GIS", "HSY", "STZ", "KHC", "CLX", "CHD", "KR", "SYY", "ADM",
	// Industrials
	"CAT", "DE", "UNP", "UPS", "HON", "RTX", "BA", "LMT", "GE",
	"ETN", "ITW", "EMR", "PH", "ROK", "CMI", "PCAR", "FAST", "ODFL", "CSX",
	"NSC", "WM", "RSG", "GD", "NOC", "TT", "CARR",
	// Energy
	"XOM", "CVX", "COP", "SLB", "EOG", "MPC", "PSX", "VLO", "OXY",
	"HES", "DVN", "FANG", "HAL", "BKR", "KMI", "WMB", "OKE",
	// Materials
	"LIN", "APD", "SHW", "ECL", "DD", "NEM", "FCX", "NUE", "VMC", "MLM",
	"DOW", "PPG",
	// Utilities
	"NEE", "DUK", "SO", "D", "AEP", "SRE", "EXC", "XEL",
	// Communication
	"GOOG", "NFLX", "DIS", "CMCSA", "T", "VZ", "TMUS", "CHTR",
	// REITs
	"PLD", "AMT", "CCI", "EQIX", "PSA", "O",
}

// DefaultCatalog is the instrument list of the daily market analysis.
func DefaultCatalog() strategy.Catalog {
	return strategy.Catalog{
		Indices: []strategy.Instrument{
			{Ticker: "SPY", Name: "S&P 500"},
			{Ticker: "QQQ", Name: "Nasdaq 100"},
			{Ticker: "DIA", Name: "Dow Jones"},
			{Ticker: "IWM", Name: "Russell 2000"},
		},
		VIX: strategy.Instrument{Ticker: "^VIX", Name: "VIX"},
		Sectors: []strategy.Instrument{
			{Ticker: "XLK", Name: "Technology"},
			{Ticker: "XLF", Name: "Financials"},
			{Ticker: "XLV", Name: "Healthcare"},
			{Ticker: "XLE", Name: "Energy"},
			{Ticker: "XLI", Name: "Industrials"},
			{Ticker: "XLC", Name: "Communication"},
			{Ticker: "XLY", Name: "Consumer Disc."},
			{Ticker: "XLP", Name: "Consumer Staples"},
			{Ticker: "XLRE", Name: "Real Estate"},
			{Ticker: "XLU", Name: "Utilities"},
			{Ticker: "XLB", Name: "Materials"},
		},
		Bonds: strategy.Instrument{Ticker: "TLT", Name: "20+ Yr Treasury"},
	}
}
