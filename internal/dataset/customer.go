// Package dataset loads, validates, splits and encodes the bank customer
// table.
//
// Categorical columns are mapped through fixed tables rather than
// inferred from the data: Geography uses France as the baseline with
// Germany and Spain indicators, Gender uses Female as the baseline with a
// Male indicator. Any other value is rejected at load time.
package dataset

import (
	"fmt"
	"strings"

	"github.com/paveg/churnscope/internal/errors"
)

// Geography is the customer's country.
type Geography string

// Known geographies. France is the encoding baseline.
const (
	France  Geography = "France"
	Germany Geography = "Germany"
	Spain   Geography = "Spain"
)

// Geographies lists the valid values, baseline first.
func Geographies() []Geography {
	return []Geography{France, Germany, Spain}
}

// Valid reports whether g is one of the known geographies.
func (g Geography) Valid() bool {
	switch g {
	case France, Germany, Spain:
		return true
	default:
		return false
	}
}

// Gender is the customer's recorded gender.
type Gender string

// Known genders. Female is the encoding baseline.
const (
	Female Gender = "Female"
	Male   Gender = "Male"
)

// Genders lists the valid values, baseline first.
func Genders() []Gender {
	return []Gender{Female, Male}
}

// Valid reports whether g is one of the known genders.
func (g Gender) Valid() bool {
	return g == Female || g == Male
}

// Customer is one cleaned row of the churn table. RowNumber, CustomerId
// and Surname exist in the source file but carry no signal and are not
// mapped.
type Customer struct {
	CreditScore     int       `csv:"CreditScore"`
	Geography       Geography `csv:"Geography"`
	Gender          Gender    `csv:"Gender"`
	Age             int       `csv:"Age"`
	Tenure          int       `csv:"Tenure"`
	Balance         float64   `csv:"Balance"`
	NumOfProducts   int       `csv:"NumOfProducts"`
	HasCrCard       bool      `csv:"HasCrCard"`
	IsActiveMember  bool      `csv:"IsActiveMember"`
	EstimatedSalary float64   `csv:"EstimatedSalary"`
	Exited          bool      `csv:"Exited"`
}

// RequiredColumns are the header names LoadCSV insists on.
func RequiredColumns() []string {
	return []string{
		"CreditScore", "Geography", "Gender", "Age", "Tenure", "Balance",
		"NumOfProducts", "HasCrCard", "IsActiveMember", "EstimatedSalary", "Exited",
	}
}

// DroppedColumns are present in the raw export and ignored on load.
func DroppedColumns() []string {
	return []string{"RowNumber", "CustomerId", "Surname"}
}

// normalize trims whitespace around categorical values.
func (c *Customer) normalize() {
	c.Geography = Geography(strings.TrimSpace(string(c.Geography)))
	c.Gender = Gender(strings.TrimSpace(string(c.Gender)))
}

// validate checks the row against the fixed schema. row is 1-based and
// only used in error messages.
func (c *Customer) validate(row int) error {
	const op = "LoadCSV"
	switch {
	case !c.Geography.Valid():
		return errors.NewInvalidRecordError(op, "Geography", row,
			fmt.Errorf("unknown geography %q", c.Geography))
	case !c.Gender.Valid():
		return errors.NewInvalidRecordError(op, "Gender", row,
			fmt.Errorf("unknown gender %q", c.Gender))
	case c.Age < 0:
		return errors.NewInvalidRecordError(op, "Age", row, fmt.Errorf("negative age %d", c.Age))
	case c.Tenure < 0:
		return errors.NewInvalidRecordError(op, "Tenure", row, fmt.Errorf("negative tenure %d", c.Tenure))
	case c.NumOfProducts < 0:
		return errors.NewInvalidRecordError(op, "NumOfProducts", row,
			fmt.Errorf("negative product count %d", c.NumOfProducts))
	}
	return nil
}

// Labels extracts the Exited column.
func Labels(rows []Customer) []bool {
	out := make([]bool, len(rows))
	for i := range rows {
		out[i] = rows[i].Exited
	}
	return out
}
