package schema

import "strconv"

// DefaultMexicoStates returns the 32 federal entities keyed "1" to "32".
func DefaultMexicoStates() []Option {
	names := []string{
		"Aguascalientes", "Baja California", "Baja California Sur", "Campeche",
		"Chiapas", "Chihuahua", "Ciudad de México", "Coahuila",
		"Colima", "Durango", "Estado de México", "Guanajuato",
		"Guerrero", "Hidalgo", "Jalisco", "Michoacán",
		"Morelos", "Nayarit", "Nuevo León", "Oaxaca",
		"Puebla", "Querétaro", "Quintana Roo", "San Luis Potosí",
		"Sinaloa", "Sonora", "Tabasco", "Tamaulipas",
		"Tlaxcala", "Veracruz", "Yucatán", "Zacatecas",
	}
	out := make([]Option, len(names))
	for i, name := range names {
		out[i] = Option{Value: strconv.Itoa(i + 1), Label: name}
	}
	return out
}

// DefaultPaymentPeriods returns the payroll periods, all enabled.
func DefaultPaymentPeriods() []PaymentPeriod {
	names := []string{
		"Semanal", "Decenal", "Catorcenal", "Quincenal", "Mensual",
		"Bimestral", "Trimestral", "Cuatrimestral", "Semestral", "Anual",
	}
	out := make([]PaymentPeriod, len(names))
	for i, name := range names {
		out[i] = PaymentPeriod{Value: strconv.Itoa(i + 1), Label: name, Enabled: true}
	}
	return out
}
