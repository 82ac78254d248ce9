package domain

import "errors"

// Errores centinela del dominio. Se comparan con errors.Is en los
// componentes superiores para decidir si suprimir, reintentar o abortar.
var (
	// ErrInsufficientHistory indica que la ventana de quotes aún no tiene
	// las muestras necesarias para el lookback pedido.
	ErrInsufficientHistory = errors.New("insufficient quote history")

	// ErrStaleQuote indica que la última quote supera la edad máxima.
	ErrStaleQuote = errors.New("stale quote")

	// ErrInsufficientBalance indica que el cash del ledger no cubre el notional.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrVenueUnavailable indica un fallo transitorio del venue externo.
	ErrVenueUnavailable = errors.New("venue unavailable")

	// ErrOppositeSideOpen indica posición abierta en otro token del mismo grupo.
	ErrOppositeSideOpen = errors.New("opposite side already open")
)
