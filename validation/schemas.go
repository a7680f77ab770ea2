package validation

// Login is the sign-in form.
type Login struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (l *Login) normalize(_ *sanitizer) {
	l.Email = email(l.Email)
}

// RegisterIdentity is step one of registration.
type RegisterIdentity struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	FullName        string `json:"fullName" validate:"required,min=3,max=120"`
	Phone           string `json:"phone" validate:"omitempty,phone"`
}

func (r *RegisterIdentity) normalize(s *sanitizer) {
	r.Email = email(r.Email)
	r.FullName = s.text(r.FullName)
	r.Phone = Digits(r.Phone)
}

// RegisterOrganization is step two of registration.
type RegisterOrganization struct {
	Name   string `json:"name" validate:"required,min=2,max=120"`
	Domain string `json:"domain" validate:"omitempty,fqdn"`
	TaxID  string `json:"taxId" validate:"omitempty,taxid"`
}

func (r *RegisterOrganization) normalize(s *sanitizer) {
	r.Name = s.text(r.Name)
	r.Domain = domain(s.text(r.Domain))
	r.TaxID = Digits(r.TaxID)
}

// PasswordResetRequest asks for a recovery link.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (p *PasswordResetRequest) normalize(_ *sanitizer) {
	p.Email = email(p.Email)
}

// NewPassword sets a password after following a recovery link.
type NewPassword struct {
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

func (*NewPassword) normalize(_ *sanitizer) {}

// ChangePassword is submitted by a signed in user.
type ChangePassword struct {
	CurrentPassword string `json:"currentPassword" validate:"required,min=8"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,nefield=CurrentPassword"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,min=8,eqfield=NewPassword"`
}

func (*ChangePassword) normalize(_ *sanitizer) {}
