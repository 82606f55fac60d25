package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"loan-matchmaker/internal/models"
	"loan-matchmaker/internal/utils"
)

// CSV import errors.
var (
	ErrEmptyCSV       = errors.New("CSV content is empty")
	ErrMissingColumns = errors.New("missing required columns")
	ErrNoDataRows     = errors.New("CSV file contains no data rows")
)

// RequiredColumns are the columns a catalog CSV must carry.
var RequiredColumns = []string{
	"id",
	"name",
	"interest_rate",
	"min_loan_amount",
	"max_loan_amount",
	"min_income",
	"min_credit_score",
	"employment_types",
}

// ColumnAliases maps alternative header names to the standard ones.
var ColumnAliases = map[string]string{
	"lender_id":   "id",
	"lenderid":    "id",
	"lender id":   "id",
	"lender":      "name",
	"lender_name": "name",
	"lender name": "name",

	"rate":          "interest_rate",
	"interestrate":  "interest_rate",
	"interest rate": "interest_rate",
	"apr":           "interest_rate",

	"minloanamount": "min_loan_amount",
	"min_amount":    "min_loan_amount",
	"min loan":      "min_loan_amount",
	"maxloanamount": "max_loan_amount",
	"max_amount":    "max_loan_amount",
	"max loan":      "max_loan_amount",

	"minincome":     "min_income",
	"income":        "min_income",
	"annual_income": "min_income",

	"mincreditscore": "min_credit_score",
	"credit_score":   "min_credit_score",
	"cibil":          "min_credit_score",
	"min_cibil":      "min_credit_score",

	"employmenttypes": "employment_types",
	"employment":      "employment_types",

	"loanpurpose": "loan_purpose",
	"purpose":     "loan_purpose",

	"specialeligibility": "special_eligibility",
	"special":            "special_eligibility",

	"processingtimedays": "processing_time_days",
	"processing_days":    "processing_time_days",
}

// listSeparator splits multi-valued cells such as employment types.
const listSeparator = "|"

// ParseCSV reads a lender catalog from CSV. Rows that fail to parse are
// reported by line and skipped; the returned lenders are validated together.
func ParseCSV(r io.Reader) ([]models.Lender, []error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, []error{ErrEmptyCSV}
	}
	if err != nil {
		return nil, []error{fmt.Errorf("failed to read header: %w", err)}
	}

	columns, err := mapColumns(header)
	if err != nil {
		return nil, []error{err}
	}

	var (
		lenders   []models.Lender
		rowErrors []error
	)
	lineNum := 1
	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrors = append(rowErrors, fmt.Errorf("line %d: %w", lineNum, err))
			continue
		}

		lender, err := parseRow(columns, record)
		if err != nil {
			rowErrors = append(rowErrors, fmt.Errorf("line %d: %w", lineNum, err))
			continue
		}
		lenders = append(lenders, lender)
	}

	if len(lenders) == 0 {
		return nil, append([]error{ErrNoDataRows}, rowErrors...)
	}
	if err := Validate(lenders); err != nil {
		return nil, append(rowErrors, err)
	}
	return lenders, rowErrors
}

func mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, col := range header {
		normalized := strings.ToLower(strings.TrimSpace(col))
		if alias, ok := ColumnAliases[normalized]; ok {
			normalized = alias
		}
		columns[normalized] = i
	}

	var missing []string
	for _, required := range RequiredColumns {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return columns, nil
}

func parseRow(columns map[string]int, record []string) (models.Lender, error) {
	get := func(column string) string {
		idx, ok := columns[column]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}
	number := func(column string) (float64, error) {
		raw := get(column)
		v := utils.CoerceFloat(raw)
		if math.IsNaN(v) {
			return 0, fmt.Errorf("invalid %s: %q", column, raw)
		}
		return v, nil
	}
	integer := func(column string, optional bool) (int, error) {
		raw := get(column)
		if raw == "" && optional {
			return 0, nil
		}
		v, ok := utils.CoerceInt(raw)
		if !ok {
			return 0, fmt.Errorf("invalid %s: %q", column, raw)
		}
		return v, nil
	}

	var (
		l   models.Lender
		err error
	)

	id, err := integer("id", false)
	if err != nil {
		return l, err
	}
	l.ID = int64(id)
	l.Name = get("name")

	if l.InterestRate, err = number("interest_rate"); err != nil {
		return l, err
	}
	if l.MinLoanAmount, err = number("min_loan_amount"); err != nil {
		return l, err
	}
	if l.MaxLoanAmount, err = number("max_loan_amount"); err != nil {
		return l, err
	}
	if l.MinIncome, err = number("min_income"); err != nil {
		return l, err
	}
	if l.MinCreditScore, err = integer("min_credit_score", false); err != nil {
		return l, err
	}
	if l.ProcessingTimeDays, err = integer("processing_time_days", true); err != nil {
		return l, err
	}

	l.EmploymentTypes = splitList(get("employment_types"))
	l.LoanPurpose = get("loan_purpose")
	l.SpecialEligibility = get("special_eligibility")
	l.Features = splitList(get("features"))
	return l, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, listSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
