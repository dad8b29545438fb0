package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"

	"github.com/dmitrijs2005/clientkeeper/internal/common"
	"github.com/dmitrijs2005/clientkeeper/internal/server/models"
)

const birthDateLayout = "2006-01-02"

// AddressInput is the address part of a registration.
type AddressInput struct {
	ZipCode      string `json:"zipCode"`
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	Country      string `json:"country"`
}

func (a AddressInput) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.ZipCode, validation.Required, validation.Length(3, 16)),
		validation.Field(&a.Street, validation.Required, validation.Length(1, 200)),
		validation.Field(&a.Number, validation.Length(0, 20)),
		validation.Field(&a.Complement, validation.Length(0, 200)),
		validation.Field(&a.Neighborhood, validation.Length(0, 100)),
		validation.Field(&a.City, validation.Required, validation.Length(1, 100)),
		validation.Field(&a.State, validation.Length(0, 100)),
		validation.Field(&a.Country, validation.Length(0, 100)),
	)
}

func (a AddressInput) model(clientID int64) *models.Address {
	return &models.Address{
		ClientID:     clientID,
		ZipCode:      strings.TrimSpace(a.ZipCode),
		Street:       strings.TrimSpace(a.Street),
		Number:       strings.TrimSpace(a.Number),
		Complement:   strings.TrimSpace(a.Complement),
		Neighborhood: strings.TrimSpace(a.Neighborhood),
		City:         strings.TrimSpace(a.City),
		State:        strings.TrimSpace(a.State),
		Country:      strings.TrimSpace(a.Country),
	}
}

// RegisterInput is a new account. Avatar is an optional base64 image or data
// URL; BirthDate is YYYY-MM-DD.
type RegisterInput struct {
	Email     string        `json:"email"`
	Password  string        `json:"password"`
	FirstName string        `json:"firstName"`
	LastName  string        `json:"lastName"`
	Document  string        `json:"document"`
	Phone     string        `json:"phone"`
	BirthDate string        `json:"birthDate"`
	Avatar    string        `json:"avatar"`
	Address   *AddressInput `json:"address"`
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, validation.Length(6, 254), is.Email),
		validation.Field(&in.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&in.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.LastName, validation.Length(0, 100)),
		validation.Field(&in.Document, validation.By(validateCPF)),
		validation.Field(&in.BirthDate, validation.Date(birthDateLayout)),
		validation.Field(&in.Address),
	)
}

// UpdateInput is a partial profile change. Nil fields are left unchanged; an
// empty Avatar removes the current image.
type UpdateInput struct {
	Email     *string              `json:"email"`
	Password  *string              `json:"password"`
	FirstName *string              `json:"firstName"`
	LastName  *string              `json:"lastName"`
	Document  *string              `json:"document"`
	Phone     *string              `json:"phone"`
	BirthDate *string              `json:"birthDate"`
	Avatar    *string              `json:"avatar"`
	Address   *models.AddressPatch `json:"address"`
}

func (in UpdateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.NilOrNotEmpty, validation.Length(6, 254), is.Email),
		validation.Field(&in.Password, validation.NilOrNotEmpty, validation.Length(8, 100)),
		validation.Field(&in.FirstName, validation.NilOrNotEmpty, validation.Length(1, 100)),
		validation.Field(&in.LastName, validation.Length(0, 100)),
		validation.Field(&in.Document, validation.By(validateCPF)),
		validation.Field(&in.BirthDate, validation.Date(birthDateLayout)),
	)
}

func validationError(err error) error {
	return fmt.Errorf("%w: %v", common.ErrorValidation, err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizePhone parses phone, defaulting to region when it carries no
// country code, and returns it in E.164 form. Empty stays empty.
func normalizePhone(phone, region string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", nil
	}
	num, err := phonenumbers.Parse(phone, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", validationError(errors.New("phone: must be a valid phone number"))
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func parseBirthDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(birthDateLayout, s)
	if err != nil {
		return nil, validationError(fmt.Errorf("birthDate: %v", err))
	}
	if t.After(time.Now()) {
		return nil, validationError(errors.New("birthDate: must not be in the future"))
	}
	return &t, nil
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// validateCPF checks a Brazilian taxpayer number (formatted or bare digits)
// against its two check digits.
func validateCPF(value interface{}) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return nil
		}
		s = *v
	default:
		return errors.New("must be a string")
	}
	if s == "" {
		return nil
	}

	d := onlyDigits(s)
	if len(d) != 11 || strings.Count(d, d[:1]) == 11 {
		return errors.New("must be a valid CPF")
	}

	check := func(n int) int {
		sum := 0
		for i := 0; i < n; i++ {
			sum += int(d[i]-'0') * (n + 1 - i)
		}
		r := sum * 10 % 11
		if r == 10 {
			r = 0
		}
		return r
	}
	if check(9) != int(d[9]-'0') || check(10) != int(d[10]-'0') {
		return errors.New("must be a valid CPF")
	}
	return nil
}
