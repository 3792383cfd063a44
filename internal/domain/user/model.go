package user

import (
	ierr "github.com/paysync/paysync/internal/errors"
	"github.com/paysync/paysync/internal/types"
)

// User is the local identity a provider customer is correlated with. The
// reconciliation core only owns the external customer id field; everything
// else belongs to the account system.
type User struct {
	ID    string `db:"id" json:"id"`
	Email string `db:"email" json:"email"`
	Name  string `db:"name" json:"name"`
	// The provider customer id; attached exactly once by the customer
	// linker and never re-assigned
	ExternalCustomerID *string `db:"external_customer_id" json:"external_customer_id,omitempty"`

	types.BaseModel
}

func (u *User) Validate() error {
	if u.Email == "" {
		return ierr.NewError("invalid email").
			WithHint("Email is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the user
func (u *User) TableName() string {
	return "users"
}
