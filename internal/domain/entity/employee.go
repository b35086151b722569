package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Employee empleado de la empresa; DepartmentID referencia a Department.
type Employee struct {
	ID             int64           `json:"id,omitempty"`
	EmployeeNumber string          `json:"employeeNumber"`
	NationalID     string          `json:"nationalId,omitempty"`
	FullName       string          `json:"fullName"`
	DepartmentID   int64           `json:"departmentId,omitempty"`
	Position       string          `json:"position,omitempty"`
	Salary         decimal.Decimal `json:"salary"`
	HireDate       time.Time       `json:"hireDate"`
	Status         string          `json:"status"` // active, inactive
}
