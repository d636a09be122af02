package models

import "strings"

// CategoryPath is a dotted hierarchical key identifying a leaf of the
// normalized financial statement, e.g. "income_statement.revenue.gross_sales".
// An empty path means "unclassified".
type CategoryPath string

// Statement section roots. Every valid category path starts with one of these.
const (
	SectionBalanceSheet    = "balance_sheet"
	SectionIncomeStatement = "income_statement"
	SectionCashFlow        = "cash_flow"
)

// Section returns the statement the path belongs to ("" for unclassified paths).
func (p CategoryPath) Section() string {
	if p == "" {
		return ""
	}
	parts := strings.SplitN(string(p), ".", 2)
	switch parts[0] {
	case SectionBalanceSheet, SectionIncomeStatement, SectionCashFlow:
		return parts[0]
	}
	return ""
}

// IsValid reports whether the path is non-empty and rooted in a known section.
func (p CategoryPath) IsValid() bool {
	return p.Section() != ""
}

// Leaf returns the last path segment.
func (p CategoryPath) Leaf() string {
	if p == "" {
		return ""
	}
	parts := strings.Split(string(p), ".")
	return parts[len(parts)-1]
}

// Segments returns all path segments in order.
func (p CategoryPath) Segments() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), ".")
}

// CategoryConfig is one entry of the category taxonomy loaded from YAML:
// a canonical path and the description keywords that map onto it.
type CategoryConfig struct {
	Path     string   `yaml:"path"`
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// CategoriesConfig is the root structure of the categories YAML file.
type CategoriesConfig struct {
	Categories []CategoryConfig `yaml:"categories"`
}

// DefaultCategories is the built-in taxonomy used when no categories file is
// found. Keywords are matched case-insensitively against description and vendor.
var DefaultCategories = []CategoryConfig{
	{Path: "income_statement.revenue.gross_sales", Name: "Gross Sales",
		Keywords: []string{"sale", "invoice to", "billing", "revenue", "income"}},
	{Path: "income_statement.revenue.contract_revenue", Name: "Contract Revenue",
		Keywords: []string{"progress payment", "draw request", "milestone", "retention release"}},
	{Path: "income_statement.cogs.materials", Name: "Materials",
		Keywords: []string{"lumber", "concrete", "steel", "drywall", "materials", "supply", "supplies"}},
	{Path: "income_statement.cogs.labor", Name: "Direct Labor",
		Keywords: []string{"labor", "payroll", "wages", "crew", "framing", "roofing"}},
	{Path: "income_statement.cogs.subcontractors", Name: "Subcontractors",
		Keywords: []string{"subcontract", "electrical", "plumbing", "hvac", "excavation", "masonry"}},
	{Path: "income_statement.opex.professional_fees", Name: "Professional Fees",
		Keywords: []string{"engineering", "architect", "consulting", "legal", "surveyor", "inspection"}},
	{Path: "income_statement.opex.insurance", Name: "Insurance",
		Keywords: []string{"insurance", "liability", "surety", "bond premium"}},
	{Path: "income_statement.opex.permits", Name: "Permits & Fees",
		Keywords: []string{"permit", "license", "zoning", "impact fee"}},
	{Path: "income_statement.opex.equipment_rental", Name: "Equipment Rental",
		Keywords: []string{"rental", "crane", "scaffold", "lift", "equipment hire"}},
	{Path: "income_statement.opex.utilities", Name: "Utilities",
		Keywords: []string{"electric", "water", "gas bill", "utility", "telecom", "internet"}},
	{Path: "balance_sheet.assets.current_assets.cash_on_hand", Name: "Cash on Hand",
		Keywords: []string{"deposit", "cash balance", "opening balance"}},
	{Path: "balance_sheet.assets.current_assets.accounts_receivable", Name: "Accounts Receivable",
		Keywords: []string{"receivable", "outstanding invoice", "unpaid invoice"}},
	{Path: "balance_sheet.assets.fixed_assets.land", Name: "Land",
		Keywords: []string{"land purchase", "lot purchase", "parcel", "acreage"}},
	{Path: "balance_sheet.assets.fixed_assets.equipment", Name: "Equipment",
		Keywords: []string{"equipment purchase", "machinery", "vehicle purchase", "truck purchase"}},
	{Path: "balance_sheet.liabilities.accounts_payable", Name: "Accounts Payable",
		Keywords: []string{"payable", "amount due", "balance due"}},
	{Path: "balance_sheet.liabilities.loans", Name: "Loans Payable",
		Keywords: []string{"loan", "mortgage", "note payable", "line of credit", "financing"}},
	{Path: "cash_flow.operating.receipts", Name: "Operating Receipts",
		Keywords: []string{"payment received", "receipt", "collection"}},
	{Path: "cash_flow.operating.disbursements", Name: "Operating Disbursements",
		Keywords: []string{"payment to", "disbursement", "check issued"}},
	{Path: "cash_flow.financing.draws", Name: "Financing Draws",
		Keywords: []string{"construction draw", "loan draw", "advance"}},
	{Path: "cash_flow.investing.acquisitions", Name: "Acquisitions",
		Keywords: []string{"acquisition", "capital expenditure", "capex"}},
}
