package dto

import "time"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// ExpedienteListResponse is a page of expedientes.
type ExpedienteListResponse struct {
	Items []Expediente `json:"items"`
	Total int          `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
	Pages int          `json:"pages"`
}

// StatsResponse summarizes the store.
type StatsResponse struct {
	Expedientes int `json:"expedientes"`
	Pedidos     int `json:"pedidos"`
	Completos   int `json:"completos"`
	Parciales   int `json:"parciales"`
	Pendientes  int `json:"pendientes"`
}

// ExtractionResponse is returned by the purchase order endpoint.
type ExtractionResponse struct {
	Result ExtractionResult `json:"result"`
	Report string           `json:"report"`
}

// PedidoRef is the view of one order line in a workbook comparison.
type PedidoRef struct {
	NumeroPedido string `json:"numeroPedido"`
	Expediente   string `json:"expediente"`
	Estatus      string `json:"estatus"`
	Factura      string `json:"factura,omitempty"`
}

// PedidoDiff is an order line present on both sides with a different status
// or invoice number.
type PedidoDiff struct {
	NumeroPedido string    `json:"numeroPedido"`
	Expediente   string    `json:"expediente"`
	Store        PedidoRef `json:"store"`
	Workbook     PedidoRef `json:"workbook"`
}

// CompareReport lists the differences between a workbook and the store.
type CompareReport struct {
	FechaAnalisis        time.Time    `json:"fechaAnalisis"`
	Cliente              string       `json:"cliente"`
	ExpedientesWorkbook  int          `json:"expedientesWorkbook"`
	ExpedientesStore     int          `json:"expedientesStore"`
	PedidosWorkbook      int          `json:"pedidosWorkbook"`
	PedidosStore         int          `json:"pedidosStore"`
	ExpedientesNuevos    []string     `json:"expedientesNuevos"`
	ExpedientesFaltantes []string     `json:"expedientesFaltantes"`
	PedidosNuevos        []PedidoRef  `json:"pedidosNuevos"`
	PedidosFaltantes     []PedidoRef  `json:"pedidosFaltantes"`
	PedidosDiferentes    []PedidoDiff `json:"pedidosDiferentes"`
}

// InSync reports whether the comparison found no difference.
func (r CompareReport) InSync() bool {
	return len(r.ExpedientesNuevos) == 0 && len(r.ExpedientesFaltantes) == 0 &&
		len(r.PedidosNuevos) == 0 && len(r.PedidosFaltantes) == 0 && len(r.PedidosDiferentes) == 0
}
