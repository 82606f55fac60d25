// Package catalog loads the lender catalog the matcher ranks against.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"loan-matchmaker/internal/models"
)

//go:embed lenders.yaml
var defaultCatalog []byte

// Catalog errors.
var (
	ErrEmptyCatalog    = errors.New("lender catalog is empty")
	ErrInvalidLender   = errors.New("invalid lender")
	ErrUnsupportedType = errors.New("unsupported catalog file type")
)

// Default returns the built-in lender catalog.
func Default() ([]models.Lender, error) {
	return ParseYAML(strings.NewReader(string(defaultCatalog)))
}

// Load reads a catalog file. YAML and CSV are accepted, chosen by extension.
// An empty path returns the built-in catalog.
func Load(path string) ([]models.Lender, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(f)
	case ".csv":
		lenders, rowErrs := ParseCSV(f)
		if len(rowErrs) > 0 {
			return nil, errors.Join(rowErrs...)
		}
		return lenders, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, path)
	}
}

// ParseYAML decodes a YAML list of lenders and validates it.
func ParseYAML(r io.Reader) ([]models.Lender, error) {
	var lenders []models.Lender
	if err := yaml.NewDecoder(r).Decode(&lenders); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyCatalog
		}
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if err := Validate(lenders); err != nil {
		return nil, err
	}
	return lenders, nil
}

// Validate checks every lender and rejects duplicate ids. Lenders are sorted
// by id in place.
func Validate(lenders []models.Lender) error {
	if len(lenders) == 0 {
		return ErrEmptyCatalog
	}

	seen := make(map[int64]bool, len(lenders))
	for i := range lenders {
		l := &lenders[i]
		normalizeLender(l)
		if err := validateLender(l); err != nil {
			return err
		}
		if seen[l.ID] {
			return fmt.Errorf("%w: duplicate id %d", ErrInvalidLender, l.ID)
		}
		seen[l.ID] = true
	}

	sort.Slice(lenders, func(i, j int) bool { return lenders[i].ID < lenders[j].ID })
	return nil
}

func normalizeLender(l *models.Lender) {
	l.Name = strings.TrimSpace(l.Name)
	l.LoanPurpose = strings.ToLower(strings.TrimSpace(l.LoanPurpose))
	if l.LoanPurpose == "" {
		l.LoanPurpose = models.Wildcard
	}
	for i, t := range l.EmploymentTypes {
		l.EmploymentTypes[i] = strings.ToLower(strings.TrimSpace(t))
	}
	l.SpecialEligibility = strings.ToLower(strings.TrimSpace(l.SpecialEligibility))
}

func validateLender(l *models.Lender) error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w %d (%s): %s", ErrInvalidLender, l.ID, l.Name, fmt.Sprintf(format, args...))
	}

	switch {
	case l.ID <= 0:
		return fail("id must be positive")
	case l.Name == "":
		return fail("name is required")
	case l.InterestRate <= 0:
		return fail("interest rate must be positive")
	case l.MinLoanAmount < 0 || l.MaxLoanAmount < l.MinLoanAmount:
		return fail("loan range %.0f-%.0f is invalid", l.MinLoanAmount, l.MaxLoanAmount)
	case l.MinIncome < 0:
		return fail("minimum income must not be negative")
	case l.MinCreditScore < 0 || l.MinCreditScore > models.MaxCreditScore:
		return fail("minimum credit score %d is out of range", l.MinCreditScore)
	case len(l.EmploymentTypes) == 0:
		return fail("at least one employment type is required")
	case l.ProcessingTimeDays < 0:
		return fail("processing time must not be negative")
	}

	for _, t := range l.EmploymentTypes {
		if t != models.Wildcard && !models.EmploymentStatus(t).IsValid() {
			return fail("unknown employment type %q", t)
		}
	}
	if !l.AcceptsAnyPurpose() && !models.LoanPurpose(l.LoanPurpose).IsValid() {
		return fail("unknown loan purpose %q", l.LoanPurpose)
	}
	return nil
}
