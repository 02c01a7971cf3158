package entity

import "time"

// User is a directory record consumed read-only by the identity resolver.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Role           string    `json:"role"`
	Department     string    `json:"department"`
	ManagerID      string    `json:"manager_id,omitempty"`
	ManagesPayroll bool      `json:"manages_payroll"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
}
