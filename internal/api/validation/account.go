package validation

// RegisterRequest is the body of POST /users/register.
type RegisterRequest struct {
	Email     *string `json:"email"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Password  *string `json:"password"`
}

// ValidateRegister checks a registration.
func ValidateRegister(req RegisterRequest) []FieldError {
	var errs []FieldError

	errs = emailField(errs, "email", req.Email, true)
	errs = requiredText(errs, "firstName", req.FirstName, maxNameLen)
	errs = requiredText(errs, "lastName", req.LastName, maxNameLen)
	errs = passwordField(errs, "password", req.Password, true)

	return errs
}

// LoginRequest is the body of POST /users/login.
type LoginRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// ValidateLogin checks that credentials were supplied.
func ValidateLogin(req LoginRequest) []FieldError {
	var errs []FieldError

	errs = emailField(errs, "email", req.Email, true)
	if req.Password == nil || *req.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "password is required"})
	}

	return errs
}

// UpdateUserRequest is the body of PATCH /users/{id}. Nil fields are left
// unchanged.
type UpdateUserRequest struct {
	Email           *string `json:"email"`
	FirstName       *string `json:"firstName"`
	LastName        *string `json:"lastName"`
	Password        *string `json:"password"`
	CurrentPassword *string `json:"currentPassword"`
}

// ValidateUpdateUser validates only the supplied fields. A new password
// must come with the current one.
func ValidateUpdateUser(req UpdateUserRequest) []FieldError {
	var errs []FieldError

	errs = emailField(errs, "email", req.Email, false)
	errs = optionalText(errs, "firstName", req.FirstName, maxNameLen)
	errs = optionalText(errs, "lastName", req.LastName, maxNameLen)
	errs = passwordField(errs, "password", req.Password, false)
	if req.Password != nil && req.CurrentPassword == nil {
		errs = append(errs, FieldError{Field: "currentPassword", Message: "currentPassword is required to change password"})
	}

	return errs
}
