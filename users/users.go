package users

// Profile is the server's representation of the logged in user, as returned by
// GET usuarios/profile/. The server is authoritative for every field.
type Profile struct {
	ID           int    `json:"id"`                     // Unique identifier for the user
	Username     string `json:"username"`               // Unique username
	Email        string `json:"email,omitempty"`        // User's email address
	FirstName    string `json:"first_name,omitempty"`   // First name of the user
	LastName     string `json:"last_name,omitempty"`    // Last name of the user
	BirthDate    string `json:"birth_date,omitempty"`   // YYYY-MM-DD
	Locality     string `json:"locality,omitempty"`     // Locality (localidad)
	Municipality string `json:"municipality,omitempty"` // Municipality (municipio)
}

// ProfileUpdate is a partial profile update, only non-nil fields are sent
type ProfileUpdate struct {
	Email        *string `json:"email,omitempty" validate:"omitempty,email"`
	FirstName    *string `json:"first_name,omitempty" validate:"omitempty,max=150"`
	LastName     *string `json:"last_name,omitempty" validate:"omitempty,max=150"`
	BirthDate    *string `json:"birth_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Locality     *string `json:"locality,omitempty" validate:"omitempty,max=150"`
	Municipality *string `json:"municipality,omitempty" validate:"omitempty,max=150"`
}

// Empty reports whether the update carries no fields at all
func (u ProfileUpdate) Empty() bool {
	return u.Email == nil && u.FirstName == nil && u.LastName == nil &&
		u.BirthDate == nil && u.Locality == nil && u.Municipality == nil
}

// Registration is the sign-up form. Confirmation is checked locally and never sent.
type Registration struct {
	Username     string `json:"username" validate:"required,max=150"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,password"`
	Confirmation string `json:"-" form:"confirm_password" validate:"eqfield=Password"`
	FirstName    string `json:"first_name" validate:"required,max=150"`
	LastName     string `json:"last_name" validate:"required,max=150"`
	BirthDate    string `json:"birth_date" validate:"required,datetime=2006-01-02"`
	Locality     string `json:"locality" validate:"required,max=150"`
	Municipality string `json:"municipality" validate:"required,max=150"`
}

// PasswordChange is the change-password form. Confirmation is checked locally and never sent.
type PasswordChange struct {
	OldPassword  string `json:"old_password" validate:"required"`
	NewPassword  string `json:"new_password" validate:"required,password"`
	Confirmation string `json:"-" form:"confirm_new_password" validate:"eqfield=NewPassword"`
}

// ValidatePasswordStrength checks the backend password rule:
// - At least 8 characters long
// - Only ASCII letters and digits
// - At least one letter and one digit
func ValidatePasswordStrength(password string) bool {
	if len(password) < 8 {
		return false
	}

	var (
		hasLetter bool
		hasNumber bool
	)

	for _, char := range password {
		switch {
		case char >= 'a' && char <= 'z', char >= 'A' && char <= 'Z':
			hasLetter = true
		case char >= '0' && char <= '9':
			hasNumber = true
		default:
			return false
		}
	}

	return hasLetter && hasNumber
}
