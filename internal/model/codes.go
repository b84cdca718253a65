package model

// DefaultDocumentCode is used when the acquirer document type is unknown
const DefaultDocumentCode = "13"

// DIAN document type codes
var dianDocumentCodes = map[string]string{
	"CC":  "13", // cedula de ciudadania
	"NIT": "31",
	"CE":  "22", // cedula de extranjeria
	"PP":  "41", // pasaporte
	"TI":  "12", // tarjeta de identidad
	"DIE": "42", // documento de identificacion extranjero
}

// Fiscal responsibility codes (DIAN)
var FiscalResponsibilities = map[string]string{
	"O-13":    "Gran contribuyente",
	"O-15":    "Autorretenedor",
	"O-23":    "Agente de retencion IVA",
	"O-47":    "Regimen Simple de Tributacion",
	"R-99-PN": "No aplica - Persona Natural",
}

// Tax regime codes (DIAN)
var TaxRegimes = map[string]string{
	"01": "IVA",
	"04": "Simple",
	"48": "Responsable de IVA",
	"49": "No responsable de IVA",
}

// DANE codes for major Colombian cities
var CityCodes = map[string]string{
	"Bogota":       "11001",
	"Medellin":     "05001",
	"Cali":         "76001",
	"Barranquilla": "08001",
	"Cartagena":    "13001",
	"Cucuta":       "54001",
	"Bucaramanga":  "68001",
	"Pereira":      "66001",
	"Santa Marta":  "47001",
	"Ibague":       "73001",
}

// DANE codes for Colombian departments
var DepartmentCodes = map[string]string{
	"Amazonas":           "91",
	"Antioquia":          "05",
	"Arauca":             "81",
	"Atlantico":          "08",
	"Bogota D.C.":        "11",
	"Bolivar":            "13",
	"Boyaca":             "15",
	"Caldas":             "17",
	"Caqueta":            "18",
	"Casanare":           "85",
	"Cauca":              "19",
	"Cesar":              "20",
	"Choco":              "27",
	"Cordoba":            "23",
	"Cundinamarca":       "25",
	"Guainia":            "94",
	"Guaviare":           "95",
	"Huila":              "41",
	"La Guajira":         "44",
	"Magdalena":          "47",
	"Meta":               "50",
	"Narino":             "52",
	"Norte de Santander": "54",
	"Putumayo":           "86",
	"Quindio":            "63",
	"Risaralda":          "66",
	"San Andres":         "88",
	"Santander":          "68",
	"Sucre":              "70",
	"Tolima":             "73",
	"Valle del Cauca":    "76",
	"Vaupes":             "97",
	"Vichada":            "99",
}
