package pgc

import "fmt"

// subtypeNames maps two-digit PGC subgroups to their statutory headings.
var subtypeNames = map[int]string{
	// Grupo 1: financiación básica
	10: "Capital",
	11: "Reservas y otros instrumentos de patrimonio",
	12: "Resultados pendientes de aplicación",
	13: "Subvenciones, donaciones y ajustes por cambios de valor",
	14: "Provisiones",
	15: "Deudas a largo plazo con características especiales",
	16: "Deudas a largo plazo con partes vinculadas",
	17: "Deudas a largo plazo por préstamos y otros",
	18: "Pasivos por fianzas y garantías a largo plazo",
	19: "Situaciones transitorias de financiación",

	// Grupo 2: activo no corriente
	20: "Inmovilizaciones intangibles",
	21: "Inmovilizaciones materiales",
	22: "Inversiones inmobiliarias",
	23: "Inmovilizaciones materiales en curso",
	24: "Inversiones financieras en partes vinculadas",
	25: "Otras inversiones financieras a largo plazo",
	26: "Fianzas y depósitos constituidos a largo plazo",
	28: "Amortización acumulada del inmovilizado",
	29: "Deterioro de valor de activos no corrientes",

	// Grupo 3: existencias
	30: "Comerciales",
	31: "Materias primas",
	32: "Otros aprovisionamientos",
	33: "Productos en curso",
	34: "Productos semiterminados",
	35: "Productos terminados",
	36: "Subproductos, residuos y materiales recuperados",
	39: "Deterioro de valor de las existencias",

	// Grupo 4: acreedores y deudores
	40: "Proveedores",
	41: "Acreedores varios",
	43: "Clientes",
	44: "Deudores varios",
	46: "Personal",
	47: "Administraciones públicas",
	48: "Ajustes por periodificación",
	49: "Deterioro de valor de créditos comerciales",

	// Grupo 5: cuentas financieras
	50: "Empréstitos y deudas a corto plazo",
	51: "Deudas a corto plazo con partes vinculadas",
	52: "Deudas a corto plazo por préstamos y otros",
	53: "Inversiones financieras a corto plazo en partes vinculadas",
	54: "Otras inversiones financieras a corto plazo",
	55: "Otras cuentas no bancarias",
	56: "Fianzas y depósitos recibidos y constituidos a corto plazo",
	57: "Tesorería",
	58: "Activos no corrientes mantenidos para la venta",
	59: "Deterioro del valor de inversiones financieras a corto plazo",

	// Grupo 6: compras y gastos
	60: "Compras",
	61: "Variación de existencias",
	62: "Servicios exteriores",
	63: "Tributos",
	64: "Gastos de personal",
	65: "Otros gastos de gestión",
	66: "Gastos financieros",
	67: "Pérdidas procedentes de activos no corrientes",
	68: "Dotaciones para amortizaciones",
	69: "Pérdidas por deterioro y otras dotaciones",

	// Grupo 7: ventas e ingresos
	70: "Ventas de mercaderías y producción",
	71: "Variación de existencias",
	73: "Trabajos realizados para la empresa",
	74: "Subvenciones, donaciones y legados",
	75: "Otros ingresos de gestión",
	76: "Ingresos financieros",
	77: "Beneficios procedentes de activos no corrientes",
	79: "Excesos y aplicaciones de provisiones",
}

// Subtype returns the statutory heading for a two-digit subgroup, or a
// synthetic label for subgroups the PGC leaves unassigned.
func Subtype(subgroup int) string {
	if name, ok := subtypeNames[subgroup]; ok {
		return name
	}
	return fmt.Sprintf("Subgroup %d", subgroup)
}
