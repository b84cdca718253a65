package config

import "github.com/tallermazos/invoice-gateway/internal/model"

// Party maps the configured issuer identity to an invoice party
func (c IssuerConfig) Party() model.Party {
	return model.Party{
		PersonType:           model.PersonType(c.PersonType),
		DocumentType:         "NIT",
		DocumentNumber:       c.NIT,
		CheckDigit:           c.CheckDigit,
		LegalName:            c.LegalName,
		TradeName:            c.TradeName,
		Address:              c.Address,
		CityCode:             c.CityCode,
		City:                 c.City,
		Department:           c.Department,
		DepartmentCode:       c.DepartmentCode,
		Country:              c.Country,
		Phone:                c.Phone,
		Email:                c.Email,
		FiscalResponsibility: c.FiscalResponsibility,
		TaxRegime:            c.TaxRegime,
	}
}
