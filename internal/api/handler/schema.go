package handler

import "github.com/clientdesk/portal/internal/core/domain"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Message string `json:"message"`
}

// --- Request / Response types ---

type registerRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

// profileRequest carries a partial profile. Omitted fields stay unchanged;
// there is no email field.
type profileRequest struct {
	Name       *string `json:"name,omitempty"       validate:"omitempty,max=200"`
	Phone      *string `json:"phone,omitempty"      validate:"omitempty,max=50"`
	Address    *string `json:"address,omitempty"    validate:"omitempty,max=500"`
	Profession *string `json:"profession,omitempty" validate:"omitempty,max=200"`
}

func (r profileRequest) toUpdate() domain.ProfileUpdate {
	return domain.ProfileUpdate{
		Name:       r.Name,
		Phone:      r.Phone,
		Address:    r.Address,
		Profession: r.Profession,
	}
}

type authResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type userResponse struct {
	User *domain.User `json:"user"`
}

type clientsResponse struct {
	Clients []domain.Client `json:"clients"`
}
