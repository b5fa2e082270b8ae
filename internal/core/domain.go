package core

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	Rent            Category = "Rent"
	WaterBill       Category = "Water Bill"
	ElectricityBill Category = "Electricity Bill"
	ProductsItems   Category = "Products & Items"
)

const (
	Water Utility = iota + 1
	Electricity
)

// maxDescriptionLength counts characters, not bytes.
const maxDescriptionLength = 200

type (
	// Category is the display name of an expenditure kind.
	Category string

	// Utility distinguishes the two metered bills.
	Utility int

	// ExpenseKind is the closed set of expenditure variants. Only ProductExpense
	// carries a description, so a description on any other category cannot be represented.
	ExpenseKind interface {
		Category() Category
		Description() string
		isExpenseKind()
	}

	RentExpense struct{}

	UtilityExpense struct {
		Utility Utility
	}

	ProductExpense struct {
		Text string
	}

	Earning struct {
		ID          string
		Date        Date
		Description string
		Amount      decimal.Decimal
	}

	Expenditure struct {
		ID     string
		Date   Date
		Amount decimal.Decimal
		Kind   ExpenseKind
	}

	// MonthlySummary is the immutable archive record of one elapsed or closed month.
	MonthlySummary struct {
		ID          string
		MonthKey    MonthKey
		TotalEarned decimal.Decimal
		TotalSpent  decimal.Decimal
		TotalProfit decimal.Decimal
	}

	// EarningInput is the raw, unvalidated form of a new earning.
	EarningInput struct {
		Date        string
		Description string
		Amount      string
	}

	// ExpenseInput is the raw, unvalidated form of a new expenditure.
	ExpenseInput struct {
		Date        string
		Category    string
		Amount      string
		Description string
	}
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrMissingDate      = errors.New("date is required")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("amount must be a number greater than zero")
	ErrEmptyDescription = errors.New("description is required")
	ErrLongDescription  = fmt.Errorf("description too long (max %d characters)", maxDescriptionLength)
	ErrMissingCategory  = errors.New("category is required")
	ErrUnknownCategory  = errors.New("unknown category")

	ErrAlreadyCompleted = errors.New("month already completed")
	ErrNoData           = errors.New("no data for month")
	ErrMonthArchived    = errors.New("month already archived")
)

// Categories lists the expenditure categories in display order.
var Categories = []Category{Rent, WaterBill, ElectricityBill, ProductsItems}

// ValidationError reports which input field was rejected and why.
// It matches both ErrValidation and the specific cause with errors.Is.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

func (RentExpense) Category() Category  { return Rent }
func (RentExpense) Description() string { return "" }
func (RentExpense) isExpenseKind()      {}

func (u UtilityExpense) Category() Category {
	if u.Utility == Electricity {
		return ElectricityBill
	}
	return WaterBill
}
func (UtilityExpense) Description() string { return "" }
func (UtilityExpense) isExpenseKind()      {}

func (ProductExpense) Category() Category    { return ProductsItems }
func (p ProductExpense) Description() string { return p.Text }
func (ProductExpense) isExpenseKind()        {}

// NewExpenseKind builds the variant for a category. The description is
// required for Products & Items and discarded for every other category.
func NewExpenseKind(category Category, description string) (ExpenseKind, error) {
	switch category {
	case Rent:
		return RentExpense{}, nil
	case WaterBill:
		return UtilityExpense{Utility: Water}, nil
	case ElectricityBill:
		return UtilityExpense{Utility: Electricity}, nil
	case ProductsItems:
		description = strings.TrimSpace(description)
		if description == "" {
			return nil, invalid("description", ErrEmptyDescription)
		}
		if utf8.RuneCountInString(description) > maxDescriptionLength {
			return nil, invalid("description", ErrLongDescription)
		}
		return ProductExpense{Text: description}, nil
	case "":
		return nil, invalid("category", ErrMissingCategory)
	default:
		return nil, invalid("category", fmt.Errorf("%w: %q", ErrUnknownCategory, string(category)))
	}
}

// NewEarning validates raw input and builds an Earning with the given id.
func NewEarning(id string, in EarningInput) (Earning, error) {
	date, err := ParseDate(in.Date)
	if err != nil {
		return Earning{}, invalid("date", err)
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return Earning{}, invalid("description", ErrEmptyDescription)
	}
	if utf8.RuneCountInString(desc) > maxDescriptionLength {
		return Earning{}, invalid("description", ErrLongDescription)
	}
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return Earning{}, invalid("amount", err)
	}
	return Earning{ID: id, Date: date, Description: desc, Amount: amount}, nil
}

// NewExpenditure validates raw input and builds an Expenditure with the given id.
func NewExpenditure(id string, in ExpenseInput) (Expenditure, error) {
	date, err := ParseDate(in.Date)
	if err != nil {
		return Expenditure{}, invalid("date", err)
	}
	kind, err := NewExpenseKind(Category(strings.TrimSpace(in.Category)), in.Description)
	if err != nil {
		return Expenditure{}, err
	}
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return Expenditure{}, invalid("amount", err)
	}
	return Expenditure{ID: id, Date: date, Amount: amount, Kind: kind}, nil
}

// Category returns the category of the expenditure's kind.
func (e Expenditure) Category() Category {
	if e.Kind == nil {
		return ""
	}
	return e.Kind.Category()
}

// Description returns the product description, or "" for other categories.
func (e Expenditure) Description() string {
	if e.Kind == nil {
		return ""
	}
	return e.Kind.Description()
}

// NewMonthlySummary builds a summary; profit is always derived from earned and spent.
func NewMonthlySummary(id string, key MonthKey, earned, spent decimal.Decimal) MonthlySummary {
	return MonthlySummary{
		ID:          id,
		MonthKey:    key,
		TotalEarned: earned,
		TotalSpent:  spent,
		TotalProfit: earned.Sub(spent),
	}
}

// MonthLabel is the human readable rendering of the summary's month.
func (s MonthlySummary) MonthLabel() string {
	return s.MonthKey.Label()
}
